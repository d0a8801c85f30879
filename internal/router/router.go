// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"support_chat_server/internal/handler"
	"support_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有全部 Handler
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// /healthz 无需认证，其余接口挂在 /api 下并要求 Bearer Token
// 只有观察连接允许通过 query 携带 token
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", rt.handlers.Health.Healthz)

	api := r.Group("/api")
	{
		rt.RegisterWebSocketRoutes(api.Group("/session", middleware.JWTAuthWS())) // 观察连接

		authed := api.Group("", middleware.JWTAuth())
		sessionGroup := authed.Group("/session")
		rt.RegisterSessionRoutes(sessionGroup) // 会话路由
		rt.RegisterMessageRoutes(sessionGroup) // 消息路由
		rt.RegisterAgentRoutes(authed)         // 坐席路由
		rt.RegisterAnalyticsRoutes(authed)     // 统计路由
		rt.RegisterAdminRoutes(authed)         // 管理员路由
	}
}
