// Package role_enum 身份提供方下发的调用者角色
package role_enum

const (
	Customer   = "customer"
	Agent      = "agent"
	Admin      = "admin"
	Classifier = "classifier" // 外部分类服务，只允许回写会话结果
)

// Valid 判断是否为合法角色
func Valid(role string) bool {
	switch role {
	case Customer, Agent, Admin, Classifier:
		return true
	}
	return false
}
