package respond

// AgentStatusRespond 坐席接单状态
type AgentStatusRespond struct {
	AgentId   string `json:"agent_id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Capacity  int    `json:"capacity"`
	Active    int64  `json:"active"` // 当前进行中会话数
}
