package respond

import "time"

// SessionRespond 会话详情
// 使用位置:
//   - internal/service/session/service.go: StartSession, GetSession, ListActiveForAgent
type SessionRespond struct {
	SessionId     string     `json:"session_id"`
	CustomerId    string     `json:"customer_id"`
	AgentId       string     `json:"agent_id"`
	State         string     `json:"state"`
	Outcome       string     `json:"outcome"`
	StartedAt     time.Time  `json:"started_at"`
	BoundAt       *time.Time `json:"bound_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	LastMessageId int64      `json:"last_message_id"`
	// QueuePosition 仅 pending 时返回，0 表示排在队首
	QueuePosition *int64 `json:"queue_position,omitempty"`
}

// AssignedSessionsRespond 坐席进行中会话，Count 每次从会话表重新统计
type AssignedSessionsRespond struct {
	AgentId  string           `json:"agent_id"`
	Count    int              `json:"count"`
	Sessions []SessionRespond `json:"sessions"`
}

// EndSessionRespond 结束会话结果
// Changed 为 false 表示会话此前已结束，本次调用未产生变化
type EndSessionRespond struct {
	SessionId string     `json:"session_id"`
	State     string     `json:"state"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Changed   bool       `json:"changed"`
}

// OutcomeRespond 修改结果的返回
// Applied 为 false 表示会话已结束，结果保持冻结值
type OutcomeRespond struct {
	SessionId string `json:"session_id"`
	Outcome   string `json:"outcome"`
	Applied   bool   `json:"applied"`
}
