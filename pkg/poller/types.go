// Package poller 客户端轮询同步器
// 客户与坐席通过定时拉取与服务端会话、消息状态收敛，不依赖长连接
package poller

import (
	"fmt"
	"time"
)

// 服务端返回的业务码
const (
	codeSuccess          = 1000
	CodeSessionNotActive = 2003
)

// 会话状态
const (
	StatePending = "pending"
	StateActive  = "active"
	StateEnded   = "ended"
)

// Session 会话信息
type Session struct {
	SessionId     string     `json:"session_id"`
	CustomerId    string     `json:"customer_id"`
	AgentId       string     `json:"agent_id"`
	State         string     `json:"state"`
	Outcome       string     `json:"outcome"`
	StartedAt     time.Time  `json:"started_at"`
	BoundAt       *time.Time `json:"bound_at"`
	EndedAt       *time.Time `json:"ended_at"`
	LastMessageId int64      `json:"last_message_id"`
	QueuePosition *int64     `json:"queue_position"`
}

// Message 会话消息，写入后不再变化
type Message struct {
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

// Batch 一次增量拉取的结果
type Batch struct {
	SessionId      string    `json:"session_id"`
	State          string    `json:"state"`
	Messages       []Message `json:"messages"`
	LastId         int64     `json:"last_id"`
	HasMore        bool      `json:"has_more"`
	PollIntervalMs int       `json:"poll_interval_ms"`
}

// SendRequest 发送消息，标注字段可选
type SendRequest struct {
	SessionId string             `json:"session_id"`
	Text      string             `json:"text"`
	Emotion   *string            `json:"emotion,omitempty"`
	Entities  map[string]*string `json:"entities,omitempty"`
	Intent    *string            `json:"intent,omitempty"`
	KbAnswer  *string            `json:"kb_answer,omitempty"`
	Outcome   *string            `json:"outcome,omitempty"`
}

// EndResult 结束会话的结果
type EndResult struct {
	SessionId string     `json:"session_id"`
	State     string     `json:"state"`
	EndedAt   *time.Time `json:"ended_at"`
	Changed   bool       `json:"changed"`
}

// APIError 服务端返回的业务错误，重试不会成功
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Msg)
}
