package service

import (
	"context"

	"soul-chat-go/internal/model"
	"soul-chat-go/internal/repository"
	"soul-chat-go/pkg/events"
	"soul-chat-go/pkg/kafka"
)

// MessageService 定义了单条消息的业务逻辑接口。
type MessageService interface {
	CreateMessage(ctx context.Context, message *model.ChatMessage) error
	UpdateFeedback(ctx context.Context, id uint, liked, disliked *bool) (*model.ChatMessage, error)
}

type messageService struct {
	repo      repository.ConversationRepository
	publisher kafka.Publisher
}

// NewMessageService 创建一个新的 MessageService。
func NewMessageService(repo repository.ConversationRepository, publisher kafka.Publisher) MessageService {
	return &messageService{repo: repo, publisher: publisher}
}

func (s *messageService) CreateMessage(ctx context.Context, message *model.ChatMessage) error {
	return mapNotFound(s.repo.CreateMessage(ctx, message), ErrConversationNotFound)
}

// UpdateFeedback 分别更新点赞与点踩，两者互不影响。
func (s *messageService) UpdateFeedback(ctx context.Context, id uint, liked, disliked *bool) (*model.ChatMessage, error) {
	message, err := s.repo.UpdateMessageFeedback(ctx, id, liked, disliked)
	if err != nil {
		return nil, mapNotFound(err, ErrMessageNotFound)
	}
	publishEvent(ctx, s.publisher, events.New(events.TypeMessageFeedback, message.ConversationID, events.MessageFeedback{
		MessageID: id,
		Liked:     liked,
		Disliked:  disliked,
	}))
	return message, nil
}
