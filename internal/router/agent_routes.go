// Package router 提供 HTTP 路由注册
// 本文件定义坐席与统计相关的路由
package router

import (
	"support_chat_server/internal/infrastructure/middleware"
	"support_chat_server/pkg/enum/user/role_enum"

	"github.com/gin-gonic/gin"
)

// RegisterAgentRoutes 注册坐席名册路由
func (rt *Router) RegisterAgentRoutes(rg *gin.RouterGroup) {
	agentGroup := rg.Group("/agent")
	{
		agentGroup.POST("/status", middleware.RequireRole(role_enum.Agent, role_enum.Admin), rt.handlers.Agent.SetStatus) // 接单状态
	}
}

// RegisterAnalyticsRoutes 注册统计路由
func (rt *Router) RegisterAnalyticsRoutes(rg *gin.RouterGroup) {
	analyticsGroup := rg.Group("/analytics")
	{
		analyticsGroup.GET("/fleet", rt.handlers.Analytics.FleetSummary)           // 全局汇总
		analyticsGroup.GET("/agent/:agent_id", rt.handlers.Analytics.AgentSummary) // 坐席汇总
		analyticsGroup.GET("/card/:session_id", rt.handlers.Analytics.SessionCard) // 会话卡片
	}
}
