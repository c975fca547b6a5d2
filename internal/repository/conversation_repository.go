// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"soul-chat-go/internal/model"
)

// ErrNotFound 表示请求的会话或消息不存在。
var ErrNotFound = errors.New("record not found")

// ConversationRepository 定义了会话与消息的存取操作。
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *model.Conversation) error
	GetConversation(ctx context.Context, id uint) (*model.Conversation, error)
	GetAllConversations(ctx context.Context) ([]model.Conversation, error)
	GetConversationsByRating(ctx context.Context, rating int) ([]model.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id uint, title string) (*model.Conversation, error)
	UpdateConversationFeedback(ctx context.Context, id uint, rating int, feedback string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id uint) error

	CreateMessage(ctx context.Context, message *model.ChatMessage) error
	GetMessage(ctx context.Context, id uint) (*model.ChatMessage, error)
	GetMessagesByConversationID(ctx context.Context, conversationID uint) ([]model.ChatMessage, error)
	UpdateMessageFeedback(ctx context.Context, id uint, liked, disliked *bool) (*model.ChatMessage, error)
}

// memoryConversationRepository 是 ConversationRepository 的内存实现。
// ID 从 1 开始单调递增，删除后不会复用。
type memoryConversationRepository struct {
	mu                 sync.RWMutex
	conversations      map[uint]model.Conversation
	messages           map[uint]model.ChatMessage
	nextConversationID uint
	nextMessageID      uint
	now                func() time.Time
}

// NewMemoryConversationRepository 创建一个新的内存 ConversationRepository 实例。
func NewMemoryConversationRepository() ConversationRepository {
	return newMemoryConversationRepository(time.Now)
}

func newMemoryConversationRepository(now func() time.Time) *memoryConversationRepository {
	return &memoryConversationRepository{
		conversations:      make(map[uint]model.Conversation),
		messages:           make(map[uint]model.ChatMessage),
		nextConversationID: 1,
		nextMessageID:      1,
		now:                now,
	}
}

// CreateConversation 分配 ID 并保存会话；CreatedAt 为零值时使用当前时间。
func (r *memoryConversationRepository) CreateConversation(ctx context.Context, conversation *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation.ID = r.nextConversationID
	r.nextConversationID++
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = r.now()
	}
	r.conversations[conversation.ID] = *conversation
	return nil
}

// GetConversation 根据 ID 获取会话，不存在时返回 ErrNotFound。
func (r *memoryConversationRepository) GetConversation(ctx context.Context, id uint) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conversation, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &conversation, nil
}

// GetAllConversations 返回全部会话，按创建时间倒序。
func (r *memoryConversationRepository) GetAllConversations(ctx context.Context) ([]model.Conversation, error) {
	return r.filterConversations(func(model.Conversation) bool { return true }), nil
}

// GetConversationsByRating 返回指定评分的会话，按创建时间倒序。
func (r *memoryConversationRepository) GetConversationsByRating(ctx context.Context, rating int) ([]model.Conversation, error) {
	return r.filterConversations(func(c model.Conversation) bool { return c.Rating == rating }), nil
}

func (r *memoryConversationRepository) filterConversations(keep func(model.Conversation) bool) []model.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		if keep(c) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// UpdateConversationTitle 更新会话标题。
func (r *memoryConversationRepository) UpdateConversationTitle(ctx context.Context, id uint, title string) (*model.Conversation, error) {
	return r.updateConversation(id, func(c *model.Conversation) { c.Title = title })
}

// UpdateConversationFeedback 更新会话评分与反馈，允许重复覆盖。
func (r *memoryConversationRepository) UpdateConversationFeedback(ctx context.Context, id uint, rating int, feedback string) (*model.Conversation, error) {
	return r.updateConversation(id, func(c *model.Conversation) {
		c.Rating = rating
		c.Feedback = feedback
	})
}

func (r *memoryConversationRepository) updateConversation(id uint, apply func(*model.Conversation)) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	apply(&conversation)
	r.conversations[id] = conversation
	return &conversation, nil
}

// DeleteConversation 删除会话及其全部消息。
func (r *memoryConversationRepository) DeleteConversation(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(r.conversations, id)
	for msgID, msg := range r.messages {
		if msg.ConversationID == id {
			delete(r.messages, msgID)
		}
	}
	return nil
}

// CreateMessage 分配 ID 与时间戳并保存消息，所属会话必须已存在。
func (r *memoryConversationRepository) CreateMessage(ctx context.Context, message *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[message.ConversationID]; !ok {
		return ErrNotFound
	}
	message.ID = r.nextMessageID
	r.nextMessageID++
	message.CreatedAt = r.now()
	r.messages[message.ID] = *message
	return nil
}

// GetMessage 根据 ID 获取消息。
func (r *memoryConversationRepository) GetMessage(ctx context.Context, id uint) (*model.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, ok := r.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &message, nil
}

// GetMessagesByConversationID 返回会话内全部消息，按时间、ID 升序。
func (r *memoryConversationRepository) GetMessagesByConversationID(ctx context.Context, conversationID uint) ([]model.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.ChatMessage, 0)
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateMessageFeedback 更新点赞/点踩标记，nil 表示保持原值。
func (r *memoryConversationRepository) UpdateMessageFeedback(ctx context.Context, id uint, liked, disliked *bool) (*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message, ok := r.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if liked != nil {
		message.Liked = *liked
	}
	if disliked != nil {
		message.Disliked = *disliked
	}
	r.messages[id] = message
	return &message, nil
}

// SeedWelcomeConversation 写入一段欢迎会话，便于前端首次打开时展示。
func SeedWelcomeConversation(ctx context.Context, repo ConversationRepository) (*model.Conversation, error) {
	conversation := &model.Conversation{Title: "Welcome Conversation"}
	if err := repo.CreateConversation(ctx, conversation); err != nil {
		return nil, err
	}
	seed := []model.ChatMessage{
		{ConversationID: conversation.ID, Sender: model.SenderUser, Content: "Hello, I'm new here!"},
		{ConversationID: conversation.ID, Sender: model.SenderAI, Content: "Welcome! I'm your AI assistant. I can help you find information, answer questions, and more. Try asking me something!"},
	}
	for i := range seed {
		if err := repo.CreateMessage(ctx, &seed[i]); err != nil {
			return nil, err
		}
	}
	return conversation, nil
}
