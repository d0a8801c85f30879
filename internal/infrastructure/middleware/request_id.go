package middleware

import (
	"support_chat_server/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID 为每个请求分配追踪 ID
// 优先沿用上游传入的 X-Request-Id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(logger.RequestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, id)
		c.Header(logger.RequestIDKey, id)
		c.Next()
	}
}
