// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"soul-chat-go/internal/middleware"
	"soul-chat-go/internal/service"
	"soul-chat-go/pkg/log"
)

// ChatHandler 负责处理聊天请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	ConversationID uint   `json:"conversationId" binding:"required,gt=0"`
	Message        string `json:"message" binding:"required,min=1"`
}

// Chat 保存用户消息并返回生成的 AI 回复。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[ChatHandler] 请求参数校验失败: %v", err)
		abortWithValidation(c, "Invalid chat data", err)
		return
	}

	exchange, err := h.chatService.SendMessage(c.Request.Context(), service.ChatRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		RequestID:      middleware.GetRequestID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateInFlight):
			c.JSON(http.StatusConflict, gin.H{"message": "Message is already being processed"})
		case errors.Is(err, service.ErrDuplicateContent):
			c.JSON(http.StatusConflict, gin.H{"message": "This exact message already exists in the conversation"})
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found"})
		default:
			log.Errorf("[ChatHandler] 处理聊天消息失败, conversationId: %d, error: %v", req.ConversationID, err)
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "Failed to process chat message",
				"error":   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, exchange)
}
