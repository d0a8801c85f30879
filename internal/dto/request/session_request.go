package request

// EndSessionRequest 结束会话请求
// 使用位置:
//   - internal/handler/session_handler.go: EndSession
type EndSessionRequest struct {
	SessionId string `json:"session_id" binding:"required,len=20"`
}

// SetOutcomeRequest 修改会话结果请求
// 使用位置:
//   - internal/handler/session_handler.go: SetOutcome
type SetOutcomeRequest struct {
	SessionId string `json:"session_id" binding:"required,len=20"`
	Outcome   string `json:"outcome" binding:"required,outcome"`
}

// ListMessagesRequest 增量拉取消息的查询参数
// 使用位置:
//   - internal/handler/message_handler.go: ListMessages
type ListMessagesRequest struct {
	SinceId int64 `form:"since_id" binding:"min=0"`
}

// PageRequest 历史列表的条数限制
type PageRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// BindSessionRequest 管理员手动绑定坐席请求
// 使用位置:
//   - internal/handler/session_handler.go: BindAgent
type BindSessionRequest struct {
	SessionId string `json:"session_id" binding:"required,len=20"`
	AgentId   string `json:"agent_id" binding:"required,max=64"`
}
