// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层调用
package service

import (
	"context"
	"time"

	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/service/access"
	"support_chat_server/internal/service/analytics"
)

// SessionService 会话登记处接口
// 处理会话的创建、绑定、结束、结果更新与查询
type SessionService interface {
	// StartSession 客户发起会话，按配置分配坐席或排队
	StartSession(ctx context.Context, caller access.Caller) (*respond.SessionRespond, error)
	// BindAgent 管理员手动为等待中的会话绑定坐席
	BindAgent(ctx context.Context, caller access.Caller, sessionId, agentId string) (*respond.SessionRespond, error)
	// EndSession 结束会话，重复调用不报错
	EndSession(ctx context.Context, caller access.Caller, sessionId string) (*respond.EndSessionRespond, error)
	// SetOutcome 更新会话结果，结束后冻结
	SetOutcome(ctx context.Context, caller access.Caller, sessionId, outcome string) (*respond.OutcomeRespond, error)
	// GetSession 会话详情
	GetSession(ctx context.Context, caller access.Caller, sessionId string) (*respond.SessionRespond, error)
	// ListActiveForAgent 坐席当前进行中的会话
	ListActiveForAgent(ctx context.Context, caller access.Caller, agentId string) (*respond.AssignedSessionsRespond, error)
	// ListClosedForAgent 坐席已结束的会话
	ListClosedForAgent(ctx context.Context, caller access.Caller, agentId string, limit int) ([]respond.SessionRespond, error)
	// DrainQueue 按先后顺序为排队会话分配坐席，返回绑定数量
	DrainQueue(ctx context.Context) int
	// RunQueueSweeper 定期执行 DrainQueue，直到 ctx 取消
	RunQueueSweeper(ctx context.Context, interval time.Duration)
}

// MessageService 消息存储接口
type MessageService interface {
	// Append 追加一条消息
	Append(ctx context.Context, caller access.Caller, req request.SendMessageRequest) (*respond.MessageRespond, error)
	// List 拉取 sinceId 之后的消息
	List(ctx context.Context, caller access.Caller, sessionId string, sinceId int64) (*respond.MessageListRespond, error)
}

// AgentService 坐席名册接口
type AgentService interface {
	// SetAgentStatus 设置坐席是否接单，未登记的坐席按默认容量登记
	SetAgentStatus(ctx context.Context, agentId string, available bool) (*respond.AgentStatusRespond, error)
	// ListAgents 全部坐席及当前负载
	ListAgents(ctx context.Context) ([]respond.AgentStatusRespond, error)
	// StrategyName 当前分配策略
	StrategyName() string
}

// AnalyticsService 统计聚合接口
type AnalyticsService interface {
	// HandleClosedEvent 消费会话结束事件
	HandleClosedEvent(ctx context.Context, evt analytics.SessionClosedEvent) error
	// OnSessionClosed 将已结束会话计入汇总，已计入返回 false
	OnSessionClosed(ctx context.Context, sessionId string) (bool, error)
	// GetAgentSummary 坐席汇总
	GetAgentSummary(ctx context.Context, caller access.Caller, agentId string) (*analytics.Summary, error)
	// GetFleetSummary 全局汇总
	GetFleetSummary(ctx context.Context, caller access.Caller) (*analytics.Summary, error)
	// SessionCard 会话卡片
	SessionCard(ctx context.Context, caller access.Caller, sessionId string) (*analytics.Card, error)
	// AgentLogs 坐席历史会话卡片与汇总
	AgentLogs(ctx context.Context, caller access.Caller, agentId string, limit int) (*analytics.AgentLogs, error)
	// CustomerHistory 客户历史会话卡片
	CustomerHistory(ctx context.Context, caller access.Caller, limit int) (*analytics.CustomerHistory, error)
	// Reconcile 补偿计入遗漏的已结束会话
	Reconcile(ctx context.Context) (int, error)
	// RunReconciler 定期执行 Reconcile，直到 ctx 取消
	RunReconciler(ctx context.Context, interval time.Duration)
}
