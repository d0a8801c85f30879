// Package model 定义数据库实体模型
// 本文件定义会话消息模型
package model

import (
	"time"
)

// Message 消息模型
// 对应数据库 message 表
// 消息只追加不修改，分类器标注在写入时一次性附带
type Message struct {
	ID uint `gorm:"primarykey"`

	// Uuid 全局唯一的雪花 ID，便于跨库追踪
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	// SessionId + Seq 唯一，Seq 即对外的 message_id，在会话内单调递增
	SessionId string `gorm:"column:session_id;uniqueIndex:idx_message_session_seq,priority:1;type:char(20);not null;comment:会话uuid"`
	Seq       int64  `gorm:"column:seq;uniqueIndex:idx_message_session_seq,priority:2;not null;comment:会话内序号"`

	// SenderRole customer 或 agent
	SenderRole string `gorm:"column:sender_role;type:varchar(16);not null;comment:发送方角色"`
	SenderId   string `gorm:"column:sender_id;type:varchar(64);not null;comment:发送者id"`
	Text       string `gorm:"column:text;type:text;comment:消息内容"`

	// 以下为分类器标注，全部可空
	Emotion  *string           `gorm:"column:emotion;type:varchar(16);comment:情绪标签"`
	Entities map[string]string `gorm:"column:entities;serializer:json;type:text;comment:实体类型->值"`
	Intent   *string           `gorm:"column:intent;type:varchar(64);comment:意图"`
	KbAnswer *string           `gorm:"column:kb_answer;type:text;comment:知识库建议答案"`
	Outcome  *string           `gorm:"column:outcome;type:varchar(16);comment:随消息到达的结果信号"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}
