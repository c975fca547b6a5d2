// Package model 包含了应用的数据模型定义。
package model

import "time"

// 消息发送方
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Conversation 代表一次会话，评分与反馈在会话结束时由用户提交。
type Conversation struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"timestamp"`
	// Rating 取值 0-5，0 表示未评分
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// ChatMessage 代表会话中的单条消息。
// 除 Liked/Disliked 外创建后不可变；两个标记相互独立，设置其一不会清除另一个。
type ChatMessage struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversationId"`
	Sender         string    `json:"sender"` // "user" 或 "ai"
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
	Liked          bool      `json:"liked"`
	Disliked       bool      `json:"disliked"`
}

// ConversationDetail 是附带全部消息的会话视图。
type ConversationDetail struct {
	Conversation
	Messages []ChatMessage `json:"messages"`
}

// ChatExchange 是一次聊天请求产生的一问一答。
type ChatExchange struct {
	UserMessage ChatMessage `json:"userMessage"`
	AIMessage   ChatMessage `json:"aiMessage"`
}
