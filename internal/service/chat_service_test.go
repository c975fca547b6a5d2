package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soul-chat-go/internal/config"
	"soul-chat-go/internal/model"
	"soul-chat-go/internal/repository"
	"soul-chat-go/pkg/events"
	"soul-chat-go/pkg/search"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// blockingSynthesizer 在 Compose 中阻塞，直到测试放行。
type blockingSynthesizer struct {
	entered chan struct{}
	proceed chan struct{}
}

func (b *blockingSynthesizer) Synthesize(ctx context.Context, message string) string {
	return b.Compose(ctx, message).Text
}

func (b *blockingSynthesizer) Compose(ctx context.Context, message string) Reply {
	close(b.entered)
	<-b.proceed
	return Reply{Text: "done", Rule: RuleDefault}
}

type chatFixture struct {
	repo      repository.ConversationRepository
	guard     InflightGuard
	searcher  *fakeSearcher
	publisher *recordingPublisher
	svc       ChatService
	convID    uint
}

func newChatFixture(t *testing.T, cfg config.ChatConfig) *chatFixture {
	t.Helper()
	repo := repository.NewMemoryConversationRepository()
	conv := &model.Conversation{Title: "test"}
	require.NoError(t, repo.CreateConversation(context.Background(), conv))

	f := &chatFixture{
		repo:      repo,
		guard:     NewMemoryInflightGuard(),
		searcher:  &fakeSearcher{outcome: search.Outcome{ErrorMessage: search.MsgNotConfigured}},
		publisher: &recordingPublisher{},
		convID:    conv.ID,
	}
	f.svc = NewChatService(repo, NewSynthesizer(NewClassifier(), f.searcher), f.guard, f.publisher, cfg)
	return f
}

func TestSendMessageLocalReply(t *testing.T) {
	f := newChatFixture(t, config.ChatConfig{RejectDuplicateContent: true})

	exchange, err := f.svc.SendMessage(context.Background(), ChatRequest{ConversationID: f.convID, Message: "How are you", RequestID: "req-1"})
	require.NoError(t, err)

	assert.Equal(t, model.SenderUser, exchange.UserMessage.Sender)
	assert.Equal(t, "How are you", exchange.UserMessage.Content)
	assert.Equal(t, model.SenderAI, exchange.AIMessage.Sender)
	assert.Equal(t, statusReply, exchange.AIMessage.Content)
	assert.Equal(t, f.convID, exchange.AIMessage.ConversationID)
	assert.Zero(t, f.searcher.calls())

	msgs, err := f.repo.GetMessagesByConversationID(context.Background(), f.convID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeChatExchange, f.publisher.events[0].Type)
	payload := f.publisher.events[0].Payload.(events.ChatExchange)
	assert.Equal(t, "req-1", payload.RequestID)
	assert.False(t, payload.Searched)
}

func TestSendMessageSearchNotConfiguredFallsBack(t *testing.T) {
	f := newChatFixture(t, config.ChatConfig{})

	exchange, err := f.svc.SendMessage(context.Background(), ChatRequest{ConversationID: f.convID, Message: "What is the capital of France"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.searcher.calls())
	assert.Contains(t, exchange.AIMessage.Content, "Search API key is not configured")
	assert.Contains(t, exchange.AIMessage.Content, "Could you try rephrasing your question?")
}

func TestSendMessageConversationNotFound(t *testing.T) {
	f := newChatFixture(t, config.ChatConfig{})

	_, err := f.svc.SendMessage(context.Background(), ChatRequest{ConversationID: 999, Message: "hello"})
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Zero(t, f.guard.(*memoryInflightGuard).Len(), "guard must be released on the not-found path")
}

func TestSendMessageDuplicateContent(t *testing.T) {
	f := newChatFixture(t, config.ChatConfig{RejectDuplicateContent: true})
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, ChatRequest{ConversationID: f.convID, Message: "hello"})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, ChatRequest{ConversationID: f.convID, Message: "hello"})
	assert.ErrorIs(t, err, ErrDuplicateContent)
	assert.Zero(t, f.guard.(*memoryInflightGuard).Len())

	msgs, err := f.repo.GetMessagesByConversationID(ctx, f.convID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "rejected duplicate must not be stored")
}

func TestSendMessageDuplicateContentDisabled(t *testing.T) {
	f := newChatFixture(t, config.ChatConfig{RejectDuplicateContent: false})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.SendMessage(ctx, ChatRequest{ConversationID: f.convID, Message: "hello"})
		require.NoError(t, err)
	}
}

func TestSendMessageRejectsConcurrentDuplicate(t *testing.T) {
	repo := repository.NewMemoryConversationRepository()
	conv := &model.Conversation{Title: "t"}
	require.NoError(t, repo.CreateConversation(context.Background(), conv))

	synth := &blockingSynthesizer{entered: make(chan struct{}), proceed: make(chan struct{})}
	guard := NewMemoryInflightGuard()
	svc := NewChatService(repo, synth, guard, nil, config.ChatConfig{})
	req := ChatRequest{ConversationID: conv.ID, Message: "slow question here"}

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.SendMessage(context.Background(), req)
		errCh <- err
	}()
	<-synth.entered

	_, err := svc.SendMessage(context.Background(), req)
	assert.ErrorIs(t, err, ErrDuplicateInFlight)

	close(synth.proceed)
	require.NoError(t, <-errCh)
	assert.Zero(t, guard.(*memoryInflightGuard).Len())
}

type failingGuard struct{}

func (failingGuard) Admit(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (failingGuard) Release(context.Context, string)             {}

func TestSendMessageGuardError(t *testing.T) {
	repo := repository.NewMemoryConversationRepository()
	svc := NewChatService(repo, NewSynthesizer(NewClassifier(), &fakeSearcher{}), failingGuard{}, nil, config.ChatConfig{})

	_, err := svc.SendMessage(context.Background(), ChatRequest{ConversationID: 1, Message: "hi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateInFlight)
	assert.Contains(t, err.Error(), "redis down")
}
