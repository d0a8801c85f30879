// Package router 提供 HTTP 路由注册
// 本文件定义观察连接的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册观察连接路由（需要认证）
// 请求示例: ws://host:port/api/session/watch/S20240101xxxx?token=xxx
func (rt *Router) RegisterWebSocketRoutes(sessionGroup *gin.RouterGroup) {
	sessionGroup.GET("/watch/:session_id", rt.handlers.Watch.Watch)
}
