// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"context"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	myredis "support_chat_server/internal/dao/redis"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/service/analytics"
	"support_chat_server/internal/service/assignment"
	"support_chat_server/internal/service/message"
	"support_chat_server/internal/service/session"
)

// Notifier 观察连接提示出口，由 websocket Hub 实现
type Notifier interface {
	Notify(sessionId, event string, lastId int64)
}

// Deps Service 层的外部依赖
// Cache 与 Notifier 可为 nil，Publisher 为 nil 时结束事件只靠补偿聚合
type Deps struct {
	Repos     *repository.Repositories
	Cache     myredis.AsyncCacheService
	Publisher session.ClosedPublisher
	Notifier  Notifier
	Config    *config.Config
}

// Services 聚合所有 Service 实例
type Services struct {
	Session   SessionService
	Message   MessageService
	Agent     AgentService
	Analytics AnalyticsService

	// Assigner 供启动时写入坐席名册
	Assigner *assignment.Service
}

// NewServices 创建并注入所有 Service 实例
// 分配策略名称非法时返回错误
func NewServices(deps Deps) (*Services, error) {
	cfg := deps.Config
	assigner, err := assignment.NewAssignmentService(deps.Repos, cfg.AssignmentConfig)
	if err != nil {
		return nil, err
	}

	sessionSvc := session.NewSessionService(deps.Repos, assigner, cfg.AssignmentConfig, deps.Publisher, deps.Notifier)
	messageSvc := message.NewMessageService(deps.Repos, cfg.PollingConfig, deps.Notifier)
	analyticsSvc := analytics.NewAnalyticsService(deps.Repos, deps.Cache, cfg.AnalyticsConfig)

	return &Services{
		Session:   sessionSvc,
		Message:   messageSvc,
		Agent:     &agentService{Service: assigner, drain: sessionSvc.DrainQueue},
		Analytics: analyticsSvc,
		Assigner:  assigner,
	}, nil
}

// agentService 坐席恢复接单后立即为排队会话分配
type agentService struct {
	*assignment.Service
	drain func(ctx context.Context) int
}

// SetAgentStatus 设置接单状态，变为可接单时触发排队分配
func (a *agentService) SetAgentStatus(ctx context.Context, agentId string, available bool) (*respond.AgentStatusRespond, error) {
	status, err := a.Service.SetAgentStatus(ctx, agentId, available)
	if err != nil {
		return nil, err
	}
	if available && a.drain(ctx) > 0 {
		// 负载已变化，重新读取
		if refreshed, err := a.Service.AgentStatus(ctx, agentId); err == nil {
			status = refreshed
		}
	}
	return status, nil
}
