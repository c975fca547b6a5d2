// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"soul-chat-go/internal/config"
	"soul-chat-go/pkg/events"
	"soul-chat-go/pkg/log"
)

// Publisher 发布聊天事件。发布失败不应影响主流程，调用方只记录日志。
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
	Close() error
}

// messageWriter 是 kafka.Writer 的子集，便于测试替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

// NewPublisher 初始化 Kafka 生产者；未启用时返回空实现。
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled {
		log.Info("Kafka 未启用, 聊天事件不会被发布")
		return NopPublisher{}
	}
	writer := &kafka.Writer{
		Addr:  kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic: cfg.Topic,
		// 按会话 ID 分区，保证同一会话的事件有序
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &kafkaPublisher{writer: writer}
}

// Publish 序列化事件并写入 Kafka。
func (p *kafkaPublisher) Publish(ctx context.Context, event events.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ConversationID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, events.Event) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// EventHandler 处理从 Kafka 读取的事件。
type EventHandler func(ctx context.Context, event events.Event, raw []byte) error

// StartConsumer 启动一个 Kafka 消费者读取聊天事件，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, groupID string, handler EventHandler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			log.Error("从 Kafka 读取消息失败", err)
			return err
		}

		var event events.Event
		if err := json.Unmarshal(m.Value, &event); err != nil {
			// 消息格式错误，直接提交，避免阻塞队列
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := handler(ctx, event, m.Value); err != nil {
			log.Errorf("处理聊天事件失败: id=%s, type=%s, error: %v", event.ID, event.Type, err)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
