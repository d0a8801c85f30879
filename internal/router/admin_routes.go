// Package router 提供 HTTP 路由注册
// 本文件定义管理员相关的路由
package router

import (
	"support_chat_server/internal/infrastructure/middleware"
	"support_chat_server/pkg/enum/user/role_enum"

	"github.com/gin-gonic/gin"
)

// RegisterAdminRoutes 注册管理员相关路由（需要认证）
// 这些接口只能由管理员调用
func (rt *Router) RegisterAdminRoutes(rg *gin.RouterGroup) {
	adminOnly := middleware.RequireRole(role_enum.Admin)

	rg.POST("/session/bind", adminOnly, rt.handlers.Session.BindAgent)          // 手动绑定坐席
	rg.GET("/agent/list", adminOnly, rt.handlers.Agent.ListAgents)              // 坐席名册
	rg.POST("/analytics/reconcile", adminOnly, rt.handlers.Analytics.Reconcile) // 补偿聚合
}
