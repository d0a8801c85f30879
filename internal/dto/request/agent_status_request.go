package request

// AgentStatusRequest 坐席接单状态请求
// AgentId 为空时表示调用者本人，管理员可指定任意坐席
type AgentStatusRequest struct {
	AgentId   string `json:"agent_id" binding:"omitempty,max=64"`
	Available *bool  `json:"available" binding:"required"`
}
