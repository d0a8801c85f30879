// Package router 提供 HTTP 路由注册
// 本文件定义消息相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册消息相关路由（需要认证）
func (rt *Router) RegisterMessageRoutes(sessionGroup *gin.RouterGroup) {
	sessionGroup.POST("/send", rt.handlers.Message.SendMessage)                 // 发送消息
	sessionGroup.GET("/messages/:session_id", rt.handlers.Message.ListMessages) // 增量拉取消息
}
