package handler

import (
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 统计请求处理器
type AnalyticsHandler struct {
	analyticsSvc service.AnalyticsService
}

// NewAnalyticsHandler 创建统计处理器实例
func NewAnalyticsHandler(analyticsSvc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsSvc: analyticsSvc}
}

// AgentLogs 坐席历史会话卡片与汇总
// GET /session/logs/:agent_id?limit=
func (h *AnalyticsHandler) AgentLogs(c *gin.Context) {
	var req request.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.analyticsSvc.AgentLogs(c.Request.Context(), callerOf(c), c.Param("agent_id"), req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// CustomerHistory 客户本人的历史会话卡片
// GET /session/history?limit=
func (h *AnalyticsHandler) CustomerHistory(c *gin.Context) {
	var req request.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.analyticsSvc.CustomerHistory(c.Request.Context(), callerOf(c), req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SessionCard 单个会话卡片
// GET /analytics/card/:session_id
func (h *AnalyticsHandler) SessionCard(c *gin.Context) {
	data, err := h.analyticsSvc.SessionCard(c.Request.Context(), callerOf(c), c.Param("session_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// AgentSummary 坐席汇总
// GET /analytics/agent/:agent_id
func (h *AnalyticsHandler) AgentSummary(c *gin.Context) {
	data, err := h.analyticsSvc.GetAgentSummary(c.Request.Context(), callerOf(c), c.Param("agent_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// FleetSummary 全局汇总
// GET /analytics/fleet
func (h *AnalyticsHandler) FleetSummary(c *gin.Context) {
	data, err := h.analyticsSvc.GetFleetSummary(c.Request.Context(), callerOf(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Reconcile 管理员手动触发补偿聚合
// POST /analytics/reconcile
func (h *AnalyticsHandler) Reconcile(c *gin.Context) {
	n, err := h.analyticsSvc.Reconcile(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"folded": n})
}
