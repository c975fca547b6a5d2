package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"soul-chat-go/pkg/metrics"
)

// Metrics 记录每个路由的请求数与耗时。使用路由模板而不是原始路径，避免标签基数膨胀。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
