package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soul-chat-go/internal/config"
	"soul-chat-go/pkg/events"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishWritesKeyedMessage(t *testing.T) {
	w := &recordingWriter{}
	p := &kafkaPublisher{writer: w}

	event := events.New(events.TypeChatExchange, 7, events.ChatExchange{UserMessageID: 1, AIMessageID: 2, Rule: "default", Searched: true})
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "7", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, events.TypeChatExchange, string(msg.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded["id"])
	assert.EqualValues(t, 7, decoded["conversation_id"])
	payload := decoded["payload"].(map[string]interface{})
	assert.Equal(t, true, payload["searched"])
}

func TestPublishPropagatesWriterError(t *testing.T) {
	p := &kafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), events.New(events.TypeMessageFeedback, 1, nil))
	assert.EqualError(t, err, "broker down")
}

func TestNewPublisherDisabledIsNop(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Enabled: false})
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), events.Event{}))
	assert.NoError(t, p.Close())
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, splitBrokers(""))
}
