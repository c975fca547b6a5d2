package service

import (
	"context"
	"errors"
	"time"

	"soul-chat-go/internal/model"
	"soul-chat-go/internal/repository"
	"soul-chat-go/pkg/events"
	"soul-chat-go/pkg/kafka"
	"soul-chat-go/pkg/log"
)

// ConversationService 定义了会话业务逻辑的接口。
type ConversationService interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	ListConversationsByRating(ctx context.Context, rating int) ([]model.Conversation, error)
	GetConversation(ctx context.Context, id uint) (*model.ConversationDetail, error)
	CreateConversation(ctx context.Context, title string, createdAt *time.Time, rating int, feedback string) (*model.Conversation, error)
	UpdateTitle(ctx context.Context, id uint, title string) (*model.Conversation, error)
	UpdateFeedback(ctx context.Context, id uint, rating int, feedback string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id uint) error
}

type conversationService struct {
	repo      repository.ConversationRepository
	publisher kafka.Publisher
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository, publisher kafka.Publisher) ConversationService {
	return &conversationService{repo: repo, publisher: publisher}
}

func (s *conversationService) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	return s.repo.GetAllConversations(ctx)
}

func (s *conversationService) ListConversationsByRating(ctx context.Context, rating int) ([]model.Conversation, error) {
	return s.repo.GetConversationsByRating(ctx, rating)
}

// GetConversation 返回会话及其按时间排序的全部消息。
func (s *conversationService) GetConversation(ctx context.Context, id uint) (*model.ConversationDetail, error) {
	conversation, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrConversationNotFound)
	}
	messages, err := s.repo.GetMessagesByConversationID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ConversationDetail{Conversation: *conversation, Messages: messages}, nil
}

func (s *conversationService) CreateConversation(ctx context.Context, title string, createdAt *time.Time, rating int, feedback string) (*model.Conversation, error) {
	conversation := &model.Conversation{Title: title, Rating: rating, Feedback: feedback}
	if createdAt != nil {
		conversation.CreatedAt = *createdAt
	}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, err
	}
	log.Infof("[ConversationService] 会话已创建, id: %d", conversation.ID)
	return conversation, nil
}

func (s *conversationService) UpdateTitle(ctx context.Context, id uint, title string) (*model.Conversation, error) {
	conversation, err := s.repo.UpdateConversationTitle(ctx, id, title)
	if err != nil {
		return nil, mapNotFound(err, ErrConversationNotFound)
	}
	return conversation, nil
}

// UpdateFeedback 更新会话评分，可重复提交，后一次覆盖前一次。
func (s *conversationService) UpdateFeedback(ctx context.Context, id uint, rating int, feedback string) (*model.Conversation, error) {
	conversation, err := s.repo.UpdateConversationFeedback(ctx, id, rating, feedback)
	if err != nil {
		return nil, mapNotFound(err, ErrConversationNotFound)
	}
	publishEvent(ctx, s.publisher, events.New(events.TypeConversationFeedback, id, events.ConversationFeedback{
		Rating:   rating,
		Feedback: feedback,
	}))
	return conversation, nil
}

func (s *conversationService) DeleteConversation(ctx context.Context, id uint) error {
	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		return mapNotFound(err, ErrConversationNotFound)
	}
	log.Infof("[ConversationService] 会话已删除, id: %d", id)
	return nil
}

// mapNotFound 把仓储层的 ErrNotFound 转换为业务层的错误。
func mapNotFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
