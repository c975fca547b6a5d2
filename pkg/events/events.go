// Package events defines the structure for chat events that are sent to Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeChatExchange         = "chat.exchange"
	TypeConversationFeedback = "conversation.feedback"
	TypeMessageFeedback      = "message.feedback"
)

// Event is the envelope written to the chat events topic.
type Event struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	ConversationID uint        `json:"conversation_id"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Payload        interface{} `json:"payload"`
}

// ChatExchange records one answered chat request.
type ChatExchange struct {
	RequestID     string `json:"request_id,omitempty"`
	UserMessageID uint   `json:"user_message_id"`
	AIMessageID   uint   `json:"ai_message_id"`
	Rule          string `json:"rule"`
	Searched      bool   `json:"searched"`
	Found         bool   `json:"found"`
}

// ConversationFeedback records an end-of-conversation rating.
type ConversationFeedback struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// MessageFeedback records a like/dislike on a single message.
type MessageFeedback struct {
	MessageID uint  `json:"message_id"`
	Liked     *bool `json:"liked,omitempty"`
	Disliked  *bool `json:"disliked,omitempty"`
}

// New wraps a payload into an Event with a fresh id.
func New(eventType string, conversationID uint, payload interface{}) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		ConversationID: conversationID,
		OccurredAt:     time.Now().UTC(),
		Payload:        payload,
	}
}
