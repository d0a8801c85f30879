// Package router 提供 HTTP 路由注册
// 本文件定义会话相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes 注册会话相关路由（需要认证）
// 包括会话的创建、查询、结束与结果更新
func (rt *Router) RegisterSessionRoutes(sessionGroup *gin.RouterGroup) {
	sessionGroup.POST("/start-session", rt.handlers.Session.StartSession)     // 客户发起会话
	sessionGroup.POST("/end-session", rt.handlers.Session.EndSession)         // 结束会话
	sessionGroup.POST("/outcome", rt.handlers.Session.SetOutcome)             // 更新会话结果
	sessionGroup.GET("/assigned/:agent_id", rt.handlers.Session.ListAssigned) // 坐席进行中的会话
	sessionGroup.GET("/closed/:agent_id", rt.handlers.Session.ListClosed)     // 坐席已结束的会话
	sessionGroup.GET("/logs/:agent_id", rt.handlers.Analytics.AgentLogs)      // 坐席历史会话卡片
	sessionGroup.GET("/history", rt.handlers.Analytics.CustomerHistory)       // 客户历史会话卡片
	sessionGroup.GET("/:session_id", rt.handlers.Session.GetSession)          // 会话详情
}
