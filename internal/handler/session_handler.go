// Package handler 提供 HTTP 请求处理器
// 本文件处理会话相关的 API 请求
package handler

import (
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler 会话请求处理器
// 通过构造函数注入 SessionService
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建会话处理器实例
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// StartSession 客户发起会话
// POST /session/start-session
// 响应: respond.SessionRespond
func (h *SessionHandler) StartSession(c *gin.Context) {
	data, err := h.sessionSvc.StartSession(c.Request.Context(), callerOf(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetSession 会话详情，排队中的会话附带排队位置
// GET /session/:session_id
func (h *SessionHandler) GetSession(c *gin.Context) {
	data, err := h.sessionSvc.GetSession(c.Request.Context(), callerOf(c), c.Param("session_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListAssigned 坐席进行中的会话及数量
// GET /session/assigned/:agent_id
// 响应: respond.AssignedSessionsRespond
func (h *SessionHandler) ListAssigned(c *gin.Context) {
	data, err := h.sessionSvc.ListActiveForAgent(c.Request.Context(), callerOf(c), c.Param("agent_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListClosed 坐席已结束的会话
// GET /session/closed/:agent_id?limit=
func (h *SessionHandler) ListClosed(c *gin.Context) {
	var req request.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.sessionSvc.ListClosedForAgent(c.Request.Context(), callerOf(c), c.Param("agent_id"), req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// EndSession 结束会话，重复结束返回 changed=false
// POST /session/end-session
// 请求体: request.EndSessionRequest
func (h *SessionHandler) EndSession(c *gin.Context) {
	var req request.EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.sessionSvc.EndSession(c.Request.Context(), callerOf(c), req.SessionId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SetOutcome 更新会话结果
// POST /session/outcome
// 请求体: request.SetOutcomeRequest
func (h *SessionHandler) SetOutcome(c *gin.Context) {
	var req request.SetOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.sessionSvc.SetOutcome(c.Request.Context(), callerOf(c), req.SessionId, req.Outcome)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// BindAgent 管理员为等待中的会话指定坐席
// POST /session/bind
// 请求体: request.BindSessionRequest
func (h *SessionHandler) BindAgent(c *gin.Context) {
	var req request.BindSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.sessionSvc.BindAgent(c.Request.Context(), callerOf(c), req.SessionId, req.AgentId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
