package model

import "time"

// FleetScope 全局汇总的 scope 值
const FleetScope = "fleet"

// AgentScope 坐席汇总的 scope 值
func AgentScope(agentId string) string {
	return "agent:" + agentId
}

// FoldedSession 已聚合会话登记表
// 唯一索引保证同一会话只被计入一次
type FoldedSession struct {
	ID        uint      `gorm:"primarykey"`
	SessionId string    `gorm:"column:session_id;uniqueIndex;type:char(20);not null;comment:会话uuid"`
	AgentId   string    `gorm:"column:agent_id;index;type:varchar(64);not null;comment:坐席id"`
	FoldedAt  time.Time `gorm:"column:folded_at;not null;comment:聚合时间"`
}

// TableName 指定表名
func (FoldedSession) TableName() string {
	return "folded_session"
}

// AnalyticsSummary 物化的统计汇总，每个 scope 一行
type AnalyticsSummary struct {
	ID               uint                        `gorm:"primarykey"`
	Scope            string                      `gorm:"column:scope;uniqueIndex;type:varchar(80);not null;comment:fleet 或 agent:<id>"`
	Sessions         int64                       `gorm:"column:sessions;not null;default:0;comment:已聚合会话数"`
	Outcomes         map[string]int64            `gorm:"column:outcomes;serializer:json;type:text"`
	CustomerEmotions map[string]int64            `gorm:"column:customer_emotions;serializer:json;type:text"`
	AgentEmotions    map[string]int64            `gorm:"column:agent_emotions;serializer:json;type:text"`
	Entities         map[string]map[string]int64 `gorm:"column:entities;serializer:json;type:text"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at"`
}

// TableName 指定表名
func (AnalyticsSummary) TableName() string {
	return "analytics_summary"
}
