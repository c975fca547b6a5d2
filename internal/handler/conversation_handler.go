package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"soul-chat-go/internal/service"
	"soul-chat-go/pkg/log"
)

// ConversationHandler 处理与会话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

type createConversationRequest struct {
	Title     string     `json:"title" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
	Rating    int        `json:"rating" binding:"gte=0,lte=5"`
	Feedback  string     `json:"feedback"`
}

type updateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

type conversationFeedbackRequest struct {
	Rating   int     `json:"rating" binding:"required,gte=1,lte=5"`
	Feedback *string `json:"feedback" binding:"required"`
}

// ListConversations 返回全部会话，最新的在前。
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	conversations, err := h.service.ListConversations(c.Request.Context())
	if err != nil {
		log.Errorf("[ConversationHandler] 获取会话列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch conversations"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// ListByRating 返回指定评分（1-5）的会话。
func (h *ConversationHandler) ListByRating(c *gin.Context) {
	rating, err := strconv.Atoi(c.Param("rating"))
	if err != nil || rating < 1 || rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid rating parameter"})
		return
	}
	conversations, err := h.service.ListConversationsByRating(c.Request.Context(), rating)
	if err != nil {
		log.Errorf("[ConversationHandler] 按评分获取会话失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch conversations by rating"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// GetConversation 返回单个会话及其消息。
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid conversation ID"})
		return
	}
	detail, err := h.service.GetConversation(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to fetch conversation")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateConversation 创建一个新会话。
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithValidation(c, "Invalid conversation data", err)
		return
	}
	conversation, err := h.service.CreateConversation(c.Request.Context(), req.Title, req.Timestamp, req.Rating, req.Feedback)
	if err != nil {
		h.fail(c, err, "Failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, conversation)
}

// UpdateTitle 修改会话标题。
func (h *ConversationHandler) UpdateTitle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid conversation ID"})
		return
	}
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithValidation(c, "Invalid data", err)
		return
	}
	conversation, err := h.service.UpdateTitle(c.Request.Context(), id, req.Title)
	if err != nil {
		h.fail(c, err, "Failed to update conversation title")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// UpdateFeedback 提交会话评分与文字反馈。
func (h *ConversationHandler) UpdateFeedback(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid conversation ID"})
		return
	}
	var req conversationFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithValidation(c, "Invalid data", err)
		return
	}
	conversation, err := h.service.UpdateFeedback(c.Request.Context(), id, req.Rating, *req.Feedback)
	if err != nil {
		h.fail(c, err, "Failed to update conversation feedback")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// DeleteConversation 删除会话及其消息。
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid conversation ID"})
		return
	}
	if err := h.service.DeleteConversation(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

func (h *ConversationHandler) fail(c *gin.Context, err error, message string) {
	if errors.Is(err, service.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found"})
		return
	}
	log.Errorf("[ConversationHandler] %s: %v", message, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": message})
}
