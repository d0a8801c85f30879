package respond

import "time"

// MessageRespond 单条消息
// 使用位置:
//   - internal/service/message/service.go: Append, List
type MessageRespond struct {
	MessageId  int64             `json:"message_id"`
	SessionId  string            `json:"session_id"`
	SenderRole string            `json:"sender_role"`
	SenderId   string            `json:"sender_id"`
	Text       string            `json:"text"`
	Timestamp  time.Time         `json:"timestamp"`
	Emotion    *string           `json:"emotion"`
	Entities   map[string]string `json:"entities"`
	Intent     *string           `json:"intent"`
	KbAnswer   *string           `json:"kb_answer,omitempty"`
	Outcome    *string           `json:"outcome,omitempty"`
}

// MessageListRespond 增量拉取结果
// 客户端以 LastId 作为下一次的 since_id，State 为 ended 后停止发送
type MessageListRespond struct {
	SessionId      string           `json:"session_id"`
	State          string           `json:"state"`
	Messages       []MessageRespond `json:"messages"`
	LastId         int64            `json:"last_id"`
	HasMore        bool             `json:"has_more"`
	PollIntervalMs int              `json:"poll_interval_ms"`
}
