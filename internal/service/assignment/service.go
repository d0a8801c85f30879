// Package assignment 为新会话挑选坐席
// 挑选在调用方事务内完成：锁住接单坐席、统计负载、按策略选择，
// 后续绑定与此次读取在同一事务中提交
package assignment

import (
	"context"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Service 坐席分配与名册管理
type Service struct {
	repos    *repository.Repositories
	strategy Strategy
	cfg      config.AssignmentConfig
}

// NewAssignmentService 构造函数，策略名称非法时返回错误
func NewAssignmentService(repos *repository.Repositories, cfg config.AssignmentConfig) (*Service, error) {
	strategy, err := NewStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return &Service{repos: repos, strategy: strategy, cfg: cfg}, nil
}

// StrategyName 当前策略
func (s *Service) StrategyName() string {
	return s.strategy.Name()
}

// Pick 在事务 tx 内挑选坐席
// 接单坐席行被锁住直到 tx 结束，并发请求看到的负载包含先提交者的绑定
func (s *Service) Pick(tx *repository.Repositories, customerId string) (string, error) {
	agents, err := tx.Agent.ListAvailableForUpdate()
	if err != nil {
		return "", err
	}
	if len(agents) == 0 {
		return "", errorx.ErrNoAgentAvailable
	}

	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.AgentId)
	}
	loads, err := tx.Session.CountActiveByAgents(ids)
	if err != nil {
		return "", err
	}

	candidates := make([]Candidate, 0, len(agents))
	for _, a := range agents {
		candidates = append(candidates, Candidate{
			AgentId:  a.AgentId,
			Load:     int(loads[a.AgentId]),
			Capacity: s.capacityOf(&a),
		})
	}
	agentId, ok := s.strategy.Pick(customerId, candidates)
	if !ok {
		return "", errorx.ErrNoAgentAvailable
	}
	return agentId, nil
}

// Committed 调用方在绑定 agentId 的事务提交后调用
func (s *Service) Committed(agentId string) {
	s.strategy.Commit(agentId)
}

// RequestAgent 独立事务中挑选坐席，不做绑定
func (s *Service) RequestAgent(ctx context.Context, customerId string) (string, error) {
	var agentId string
	err := s.repos.WithContext(ctx).Transaction(func(tx *repository.Repositories) error {
		var err error
		agentId, err = s.Pick(tx, customerId)
		return err
	})
	return agentId, err
}

// SeedRoster 将配置中的坐席写入名册
// 已存在的坐席只更新名称与容量，接单状态保持不变
func (s *Service) SeedRoster(ctx context.Context) error {
	repos := s.repos.WithContext(ctx)
	for _, seed := range s.cfg.Agents {
		if seed.AgentID == "" {
			continue
		}
		capacity := seed.Capacity
		if capacity <= 0 {
			capacity = s.defaultCapacity()
		}
		agent := &model.Agent{
			AgentId:   seed.AgentID,
			Name:      seed.Name,
			Capacity:  capacity,
			Available: true,
		}
		if err := repos.Agent.Upsert(agent); err != nil {
			return err
		}
	}
	zap.L().Info("agent roster seeded", zap.Int("agents", len(s.cfg.Agents)), zap.String("strategy", s.strategy.Name()))
	return nil
}

// SetAgentStatus 修改坐席接单状态，名册中没有的坐席按默认容量自动登记
func (s *Service) SetAgentStatus(ctx context.Context, agentId string, available bool) (*respond.AgentStatusRespond, error) {
	repos := s.repos.WithContext(ctx)
	agent, err := repos.Agent.FindByAgentId(agentId)
	switch {
	case errorx.IsNotFound(err):
		agent = &model.Agent{
			AgentId:   agentId,
			Name:      agentId,
			Capacity:  s.defaultCapacity(),
			Available: available,
		}
		if err := repos.Agent.Create(agent); err != nil {
			zap.L().Error("登记坐席失败", zap.String("agent_id", agentId), zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		zap.L().Info("坐席自动登记", zap.String("agent_id", agentId), zap.Int("capacity", agent.Capacity))
	case err != nil:
		zap.L().Error("查询坐席失败", zap.String("agent_id", agentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	default:
		if _, err := repos.Agent.SetAvailable(agentId, available); err != nil {
			zap.L().Error("更新坐席状态失败", zap.String("agent_id", agentId), zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		agent.Available = available
		zap.L().Info("坐席状态变更", zap.String("agent_id", agentId), zap.Bool("available", available))
	}
	return s.statusOf(repos, agent)
}

// AgentStatus 单个坐席的状态与负载
func (s *Service) AgentStatus(ctx context.Context, agentId string) (*respond.AgentStatusRespond, error) {
	repos := s.repos.WithContext(ctx)
	agent, err := repos.Agent.FindByAgentId(agentId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodeNotFound, "坐席 %s 不存在", agentId)
		}
		zap.L().Error("查询坐席失败", zap.String("agent_id", agentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return s.statusOf(repos, agent)
}

// ListAgents 名册及当前负载
func (s *Service) ListAgents(ctx context.Context) ([]respond.AgentStatusRespond, error) {
	repos := s.repos.WithContext(ctx)
	agents, err := repos.Agent.ListAll()
	if err != nil {
		zap.L().Error("查询坐席名册失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.AgentId)
	}
	loads, err := repos.Session.CountActiveByAgents(ids)
	if err != nil {
		zap.L().Error("统计坐席负载失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	rsp := make([]respond.AgentStatusRespond, 0, len(agents))
	for _, a := range agents {
		rsp = append(rsp, respond.AgentStatusRespond{
			AgentId:   a.AgentId,
			Name:      a.Name,
			Available: a.Available,
			Capacity:  s.capacityOf(&a),
			Active:    loads[a.AgentId],
		})
	}
	return rsp, nil
}

func (s *Service) statusOf(repos *repository.Repositories, agent *model.Agent) (*respond.AgentStatusRespond, error) {
	loads, err := repos.Session.CountActiveByAgents([]string{agent.AgentId})
	if err != nil {
		zap.L().Error("统计坐席负载失败", zap.String("agent_id", agent.AgentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.AgentStatusRespond{
		AgentId:   agent.AgentId,
		Name:      agent.Name,
		Available: agent.Available,
		Capacity:  s.capacityOf(agent),
		Active:    loads[agent.AgentId],
	}, nil
}

func (s *Service) capacityOf(agent *model.Agent) int {
	if agent.Capacity > 0 {
		return agent.Capacity
	}
	return s.defaultCapacity()
}

func (s *Service) defaultCapacity() int {
	if s.cfg.DefaultCapacity > 0 {
		return s.cfg.DefaultCapacity
	}
	return 1
}
