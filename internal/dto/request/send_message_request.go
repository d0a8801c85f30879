package request

// SendMessageRequest 发送消息请求
// 发送方身份取自 Token，不在请求体中传递
// 使用位置:
//   - internal/handler/message_handler.go: SendMessage
//   - internal/service/message/service.go: Append
type SendMessageRequest struct {
	SessionId string `json:"session_id" binding:"required,len=20"`
	Text      string `json:"text" binding:"required,max=4000"`
	// 以下为分类器标注，全部可选
	Emotion  *string            `json:"emotion" binding:"omitempty,emotion"`
	Entities map[string]*string `json:"entities" binding:"omitempty,dive,keys,entity_type,endkeys"` // 实体类型 -> 值，值为 null 的项会被忽略
	Intent   *string            `json:"intent" binding:"omitempty,max=64"`
	KbAnswer *string            `json:"kb_answer" binding:"omitempty,max=4000"`
	Outcome  *string            `json:"outcome" binding:"omitempty,outcome"`
}
