package handler

import (
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/service"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// AgentHandler 坐席名册请求处理器
type AgentHandler struct {
	agentSvc service.AgentService
}

// NewAgentHandler 创建坐席处理器实例
func NewAgentHandler(agentSvc service.AgentService) *AgentHandler {
	return &AgentHandler{agentSvc: agentSvc}
}

// SetStatus 设置接单状态
// POST /agent/status
// 坐席只能修改自己，管理员可指定 agent_id
func (h *AgentHandler) SetStatus(c *gin.Context) {
	var req request.AgentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	caller := callerOf(c)
	agentId := req.AgentId
	switch {
	case caller.IsAdmin():
		if agentId == "" {
			HandleError(c, errorx.New(errorx.CodeInvalidParam, "管理员需指定 agent_id"))
			return
		}
	case caller.Role == role_enum.Agent:
		if agentId != "" && agentId != caller.UserID {
			HandleError(c, errorx.ErrForbidden)
			return
		}
		agentId = caller.UserID
	default:
		HandleError(c, errorx.New(errorx.CodeForbidden, "只有坐席可以修改接单状态"))
		return
	}

	data, err := h.agentSvc.SetAgentStatus(c.Request.Context(), agentId, *req.Available)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListAgents 坐席名册及负载
// GET /agent/list
func (h *AgentHandler) ListAgents(c *gin.Context) {
	data, err := h.agentSvc.ListAgents(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{
		"strategy": h.agentSvc.StrategyName(),
		"agents":   data,
	})
}
