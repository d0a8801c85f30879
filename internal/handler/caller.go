package handler

import (
	"support_chat_server/internal/infrastructure/middleware"
	"support_chat_server/internal/service/access"

	"github.com/gin-gonic/gin"
)

// callerOf 从上下文中取出 JWTAuth 写入的调用者身份
func callerOf(c *gin.Context) access.Caller {
	return access.Caller{
		UserID: c.GetString(middleware.CtxUserID),
		Role:   c.GetString(middleware.CtxRole),
	}
}
