// Package session_state_enum 会话生命周期状态
// pending -> active -> ended，只能前进不能回退
package session_state_enum

const (
	Pending = "pending" // 已创建，等待坐席绑定
	Active  = "active"  // 已绑定坐席，可以收发消息
	Ended   = "ended"   // 已结束，结果冻结
)
