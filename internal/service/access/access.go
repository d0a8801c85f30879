// Package access 会话参与方权限判断
// 身份（user_id, role）由身份服务签发，这里只判断该身份能对哪些会话做什么
package access

import (
	"support_chat_server/internal/model"
	"support_chat_server/pkg/enum/message/sender_role_enum"
	"support_chat_server/pkg/enum/user/role_enum"
)

// Caller 当前调用者
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool {
	return c.Role == role_enum.Admin
}

// isCustomerOf 调用者是否为该会话的客户
func (c Caller) isCustomerOf(s *model.Session) bool {
	return c.Role == role_enum.Customer && c.UserID == s.CustomerId
}

// isAgentOf 调用者是否为该会话绑定的坐席
func (c Caller) isAgentOf(s *model.Session) bool {
	return c.Role == role_enum.Agent && s.AgentId != "" && c.UserID == s.AgentId
}

// CanRead 查看会话与消息：双方参与者与管理员
func CanRead(c Caller, s *model.Session) bool {
	return c.isCustomerOf(s) || c.isAgentOf(s) || c.IsAdmin()
}

// CanEnd 结束会话：双方参与者与管理员
func CanEnd(c Caller, s *model.Session) bool {
	return CanRead(c, s)
}

// CanSetOutcome 修改结果：绑定坐席、分类服务与管理员
func CanSetOutcome(c Caller, s *model.Session) bool {
	return c.isAgentOf(s) || c.Role == role_enum.Classifier || c.IsAdmin()
}

// SenderRole 调用者在会话中以什么身份发言，非参与者返回 false
func SenderRole(c Caller, s *model.Session) (string, bool) {
	switch {
	case c.isCustomerOf(s):
		return sender_role_enum.Customer, true
	case c.isAgentOf(s):
		return sender_role_enum.Agent, true
	}
	return "", false
}

// CanViewAgent 查看坐席名下数据：坐席本人与管理员
func CanViewAgent(c Caller, agentId string) bool {
	return (c.Role == role_enum.Agent && c.UserID == agentId) || c.IsAdmin()
}

// CanViewFleet 查看全局统计：坐席与管理员
func CanViewFleet(c Caller) bool {
	return c.Role == role_enum.Agent || c.IsAdmin()
}
