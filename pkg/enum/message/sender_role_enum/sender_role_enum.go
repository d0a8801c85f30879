// Package sender_role_enum 消息发送方角色
package sender_role_enum

const (
	Customer = "customer"
	Agent    = "agent"
)

// Valid 判断是否为合法发送方角色
func Valid(role string) bool {
	return role == Customer || role == Agent
}
