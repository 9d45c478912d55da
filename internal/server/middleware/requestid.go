package middleware

import (
	"github.com/gin-gonic/gin"

	"vidgenai/internal/pkg/id"
)

// RequestID 请求ID中间件
// 透传客户端携带的 X-Request-ID，否则生成新ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = id.New()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
