// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soul-chat-go/internal/config"
	"soul-chat-go/internal/model"
	"soul-chat-go/internal/repository"
	"soul-chat-go/pkg/events"
	"soul-chat-go/pkg/kafka"
	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/metrics"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrDuplicateInFlight    = errors.New("message is already being processed")
	ErrDuplicateContent     = errors.New("this exact message already exists in the conversation")
)

// eventPublishTimeout 限制事件发布对请求延迟的影响。
const eventPublishTimeout = 2 * time.Second

// ChatRequest 是一次聊天请求。
type ChatRequest struct {
	ConversationID uint
	Message        string
	RequestID      string
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	SendMessage(ctx context.Context, req ChatRequest) (*model.ChatExchange, error)
}

type chatService struct {
	repo                   repository.ConversationRepository
	synthesizer            Synthesizer
	guard                  InflightGuard
	publisher              kafka.Publisher
	rejectDuplicateContent bool
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(repo repository.ConversationRepository, synthesizer Synthesizer, guard InflightGuard, publisher kafka.Publisher, cfg config.ChatConfig) ChatService {
	return &chatService{
		repo:                   repo,
		synthesizer:            synthesizer,
		guard:                  guard,
		publisher:              publisher,
		rejectDuplicateContent: cfg.RejectDuplicateContent,
	}
}

// SendMessage 保存用户消息、生成回复并保存 AI 消息。
// 顺序：在途去重 -> 会话存在性 -> 内容去重 -> 写入 -> 生成 -> 写入。
func (s *chatService) SendMessage(ctx context.Context, req ChatRequest) (*model.ChatExchange, error) {
	key := InflightKey(req.ConversationID, req.Message)
	release, admitted, err := Acquire(ctx, s.guard, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check in-flight requests: %w", err)
	}
	defer release()
	if !admitted {
		metrics.GuardRejections.WithLabelValues("in_flight").Inc()
		log.Warnf("[ChatService] 重复请求被拒绝, conversationId: %d", req.ConversationID)
		return nil, ErrDuplicateInFlight
	}

	if _, err := s.repo.GetConversation(ctx, req.ConversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	if s.rejectDuplicateContent {
		duplicate, err := s.hasUserMessage(ctx, req.ConversationID, req.Message)
		if err != nil {
			return nil, err
		}
		if duplicate {
			metrics.GuardRejections.WithLabelValues("content").Inc()
			log.Warnf("[ChatService] 会话中已存在相同消息, conversationId: %d", req.ConversationID)
			return nil, ErrDuplicateContent
		}
	}

	userMessage := &model.ChatMessage{
		ConversationID: req.ConversationID,
		Sender:         model.SenderUser,
		Content:        req.Message,
	}
	if err := s.createMessage(ctx, userMessage); err != nil {
		return nil, err
	}

	reply := s.synthesizer.Compose(ctx, req.Message)

	aiMessage := &model.ChatMessage{
		ConversationID: req.ConversationID,
		Sender:         model.SenderAI,
		Content:        reply.Text,
	}
	if err := s.createMessage(ctx, aiMessage); err != nil {
		return nil, err
	}
	log.Infof("[ChatService] 回复已生成, conversationId: %d, rule: %s, searched: %t", req.ConversationID, reply.Rule, reply.Searched)

	s.publish(ctx, events.New(events.TypeChatExchange, req.ConversationID, events.ChatExchange{
		RequestID:     req.RequestID,
		UserMessageID: userMessage.ID,
		AIMessageID:   aiMessage.ID,
		Rule:          reply.Rule,
		Searched:      reply.Searched,
		Found:         reply.Found,
	}))

	return &model.ChatExchange{UserMessage: *userMessage, AIMessage: *aiMessage}, nil
}

func (s *chatService) hasUserMessage(ctx context.Context, conversationID uint, content string) (bool, error) {
	history, err := s.repo.GetMessagesByConversationID(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("failed to load conversation history: %w", err)
	}
	for _, m := range history {
		if m.Sender == model.SenderUser && m.Content == content {
			return true, nil
		}
	}
	return false, nil
}

func (s *chatService) createMessage(ctx context.Context, msg *model.ChatMessage) error {
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 会话在处理期间被删除
			return ErrConversationNotFound
		}
		return fmt.Errorf("failed to save %s message: %w", msg.Sender, err)
	}
	return nil
}

func (s *chatService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.publisher, event)
}

// publishEvent 发布事件，失败只记录日志。
func publishEvent(ctx context.Context, publisher kafka.Publisher, event events.Event) {
	if publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := publisher.Publish(ctx, event); err != nil {
		log.Errorf("[Events] 发布事件失败, type: %s, conversationId: %d, error: %v", event.Type, event.ConversationID, err)
	}
}
