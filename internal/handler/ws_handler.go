// Package handler 提供 HTTP 请求处理器
// 本文件处理观察连接的 WebSocket 升级
package handler

import (
	"support_chat_server/internal/gateway/websocket"
	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// WatchHandler 会话观察连接
// 连接只接收 {event, session_id, last_id} 提示，消息内容仍需通过拉取接口获取
type WatchHandler struct {
	sessionSvc service.SessionService
	hub        *websocket.Hub
}

// NewWatchHandler 创建观察连接处理器实例
func NewWatchHandler(sessionSvc service.SessionService, hub *websocket.Hub) *WatchHandler {
	return &WatchHandler{sessionSvc: sessionSvc, hub: hub}
}

// Watch 升级为 WebSocket 连接
// GET /session/watch/:session_id?token=
// 只有会话参与者可以观察
func (h *WatchHandler) Watch(c *gin.Context) {
	caller := callerOf(c)
	session, err := h.sessionSvc.GetSession(c.Request.Context(), caller, c.Param("session_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	h.hub.Serve(c, session.SessionId, caller.UserID)
}
