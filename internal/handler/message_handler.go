package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"soul-chat-go/internal/model"
	"soul-chat-go/internal/service"
	"soul-chat-go/pkg/log"
)

// MessageHandler 处理单条消息的 API 请求。
type MessageHandler struct {
	service service.MessageService
}

// NewMessageHandler 创建一个新的 MessageHandler。
func NewMessageHandler(service service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type createMessageRequest struct {
	ConversationID uint   `json:"conversationId" binding:"required,gt=0"`
	Sender         string `json:"sender" binding:"required,oneof=user ai"`
	Content        string `json:"content" binding:"required"`
	Liked          bool   `json:"liked"`
	Disliked       bool   `json:"disliked"`
}

type messageFeedbackRequest struct {
	Liked    *bool `json:"liked"`
	Disliked *bool `json:"disliked"`
}

// CreateMessage 直接写入一条消息，不触发回复生成。
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithValidation(c, "Invalid message data", err)
		return
	}
	msg := &model.ChatMessage{
		ConversationID: req.ConversationID,
		Sender:         req.Sender,
		Content:        req.Content,
		Liked:          req.Liked,
		Disliked:       req.Disliked,
	}
	if err := h.service.CreateMessage(c.Request.Context(), msg); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found"})
			return
		}
		log.Errorf("[MessageHandler] 创建消息失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create message"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateFeedback 更新消息的点赞/点踩标记。
func (h *MessageHandler) UpdateFeedback(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid message ID"})
		return
	}
	var req messageFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithValidation(c, "Invalid data", err)
		return
	}
	msg, err := h.service.UpdateFeedback(c.Request.Context(), id, req.Liked, req.Disliked)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Message not found"})
			return
		}
		log.Errorf("[MessageHandler] 更新消息反馈失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update message feedback"})
		return
	}
	c.JSON(http.StatusOK, msg)
}
