package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers 聚合所有 HTTP 处理器。
type Handlers struct {
	Chat         *ChatHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	Search       *SearchHandler
}

// RegisterRoutes 注册 /api 路由与健康检查。
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat.Chat)
		api.POST("/search", h.Search.Search)

		conversations := api.Group("/conversations")
		{
			conversations.GET("", h.Conversation.ListConversations)
			conversations.GET("/rating/:rating", h.Conversation.ListByRating)
			conversations.GET("/:id", h.Conversation.GetConversation)
			conversations.POST("", h.Conversation.CreateConversation)
			conversations.PATCH("/:id/title", h.Conversation.UpdateTitle)
			conversations.PATCH("/:id/feedback", h.Conversation.UpdateFeedback)
			conversations.DELETE("/:id", h.Conversation.DeleteConversation)
		}

		messages := api.Group("/messages")
		{
			messages.POST("", h.Message.CreateMessage)
			messages.PATCH("/:id/feedback", h.Message.UpdateFeedback)
		}
	}
}
