// Package model 定义数据库实体模型
// 本文件定义客服会话模型
package model

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Session 客服会话模型
// 对应数据库 session 表
// 一个会话代表一位客户与一位坐席之间一次有边界的对话
type Session struct {
	gorm.Model

	// Uuid 会话唯一标识，格式：S + 日期 + 随机串，创建后不可变
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:会话uuid"`

	// CustomerId 发起会话的客户
	CustomerId string `gorm:"column:customer_id;index;type:varchar(64);not null;comment:客户id"`

	// LiveCustomerId 未结束时等于 CustomerId，结束时置空
	// 唯一索引保证同一客户同时最多一个未结束会话（NULL 不参与唯一约束）
	LiveCustomerId *string `gorm:"column:live_customer_id;uniqueIndex;type:varchar(64);comment:进行中会话的客户id"`

	// AgentId 绑定的坐席，pending 状态下为空串
	AgentId string `gorm:"column:agent_id;index:idx_session_agent_state,priority:1;type:varchar(64);not null;default:'';comment:坐席id"`

	// State 生命周期状态，见 session_state_enum
	State string `gorm:"column:state;index:idx_session_agent_state,priority:2;type:varchar(16);not null;comment:状态"`

	// Outcome 会话结果，结束后冻结，见 outcome_enum
	Outcome string `gorm:"column:outcome;type:varchar(16);not null;comment:结果"`

	// LastMessageId 当前最大消息序号，追加消息时在同一事务内自增
	LastMessageId int64 `gorm:"column:last_message_id;not null;default:0;comment:最大消息序号"`

	StartedAt time.Time    `gorm:"column:started_at;not null;comment:创建时间"`
	BoundAt   sql.NullTime `gorm:"column:bound_at;comment:绑定坐席时间"`
	EndedAt   sql.NullTime `gorm:"column:ended_at;index;comment:结束时间"`

	// EndedBy 发起结束的一方
	EndedBy string `gorm:"column:ended_by;type:varchar(64);comment:结束人id"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "session"
}
