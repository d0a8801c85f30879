package model

import "gorm.io/gorm"

// Agent 坐席名册
// 对应数据库 agent 表，Capacity 为同时进行中的会话上限
type Agent struct {
	gorm.Model
	AgentId   string `gorm:"column:agent_id;uniqueIndex;type:varchar(64);not null;comment:坐席id"`
	Name      string `gorm:"column:name;type:varchar(64);comment:坐席名称"`
	Capacity  int    `gorm:"column:capacity;not null;comment:并发会话上限"`
	Available bool   `gorm:"column:available;not null;comment:是否接单"`
}

// TableName 指定表名
func (Agent) TableName() string {
	return "agent"
}
