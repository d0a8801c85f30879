// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"support_chat_server/internal/gateway/websocket"
	"support_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Session   *SessionHandler
	Message   *MessageHandler
	Agent     *AgentHandler
	Analytics *AnalyticsHandler
	Watch     *WatchHandler
	Health    *HealthHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, hub *websocket.Hub, health *HealthHandler) *Handlers {
	return &Handlers{
		Session:   NewSessionHandler(svc.Session),
		Message:   NewMessageHandler(svc.Message),
		Agent:     NewAgentHandler(svc.Agent),
		Analytics: NewAnalyticsHandler(svc.Analytics),
		Watch:     NewWatchHandler(svc.Session, hub),
		Health:    health,
	}
}
