package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/search"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	client search.Client
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(client search.Client) *SearchHandler {
	return &SearchHandler{client: client}
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

// Search 直接调用联网搜索并返回原始结果。
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithValidation(c, "Query is required and must be a string", err)
		return
	}
	log.Infof("[SearchHandler] 收到搜索请求, query: %s", req.Query)

	resp, err := h.client.Lookup(c.Request.Context(), req.Query)
	if err != nil {
		var apiErr *search.APIError
		switch {
		case errors.Is(err, search.ErrNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"message": search.MsgNotConfigured})
		case errors.As(err, &apiErr):
			log.Warnf("[SearchHandler] 搜索服务返回错误, status: %d", apiErr.StatusCode)
			c.JSON(apiErr.StatusCode, gin.H{
				"message": "Error from search API: " + apiErr.StatusText,
				"details": apiErr.Body,
			})
		default:
			log.Errorf("[SearchHandler] 搜索失败, error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to perform search"})
		}
		return
	}

	results := resp.Results
	if results == nil {
		results = []search.Result{}
	}
	log.Infof("[SearchHandler] 搜索成功, query: '%s', 返回 %d 条结果", req.Query, len(results))
	c.JSON(http.StatusOK, gin.H{
		"results":  results,
		"searchId": resp.SearchID,
		"query":    resp.Query,
	})
}
