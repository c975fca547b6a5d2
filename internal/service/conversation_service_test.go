package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soul-chat-go/internal/model"
	"soul-chat-go/internal/repository"
	"soul-chat-go/pkg/events"
)

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryConversationRepository()
	pub := &recordingPublisher{}
	convs := NewConversationService(repo, pub)
	msgs := NewMessageService(repo, pub)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	conv, err := convs.CreateConversation(ctx, "Trip planning", &ts, 0, "")
	require.NoError(t, err)
	assert.Equal(t, ts, conv.CreatedAt)

	msg := &model.ChatMessage{ConversationID: conv.ID, Sender: model.SenderUser, Content: "hello"}
	require.NoError(t, msgs.CreateMessage(ctx, msg))

	detail, err := convs.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", detail.Title)
	require.Len(t, detail.Messages, 1)

	renamed, err := convs.UpdateTitle(ctx, conv.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)

	rated, err := convs.UpdateFeedback(ctx, conv.ID, 5, "great")
	require.NoError(t, err)
	assert.Equal(t, 5, rated.Rating)

	byRating, err := convs.ListConversationsByRating(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, byRating, 1)

	require.NoError(t, convs.DeleteConversation(ctx, conv.ID))
	_, err = convs.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, convs.DeleteConversation(ctx, conv.ID), ErrConversationNotFound)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeConversationFeedback, pub.events[0].Type)
}

func TestMessageServiceErrors(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryConversationRepository()
	msgs := NewMessageService(repo, nil)

	err := msgs.CreateMessage(ctx, &model.ChatMessage{ConversationID: 5, Sender: model.SenderUser, Content: "x"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	yes := true
	_, err = msgs.UpdateFeedback(ctx, 5, &yes, nil)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
