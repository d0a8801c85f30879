// Package session 会话登记处
// 负责会话的创建、绑定坐席、结束、结果更新与查询
package session

import (
	"context"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/access"
	"support_chat_server/internal/service/assignment"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/enum/session/outcome_enum"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Notifier 向观察连接推送提示
type Notifier interface {
	Notify(sessionId, event string, lastId int64)
}

// ClosedPublisher 发布会话结束事件，供统计聚合消费
type ClosedPublisher interface {
	PublishClosed(ctx context.Context, sessionId, agentId string) error
}

// 无可用坐席时的处理方式
const (
	OverflowReject = "reject"
	OverflowQueue  = "queue"
)

// sessionService 会话业务逻辑实现
// 通过构造函数注入 Repository、分配器与事件出口
type sessionService struct {
	repos     *repository.Repositories
	assigner  *assignment.Service
	cfg       config.AssignmentConfig
	publisher ClosedPublisher
	notifier  Notifier
	now       func() time.Time
}

// NewSessionService 构造函数，publisher 与 notifier 可为 nil
func NewSessionService(
	repos *repository.Repositories,
	assigner *assignment.Service,
	cfg config.AssignmentConfig,
	publisher ClosedPublisher,
	notifier Notifier,
) *sessionService {
	return &sessionService{
		repos:     repos,
		assigner:  assigner,
		cfg:       cfg,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
	}
}

func (s *sessionService) queueMode() bool {
	return s.cfg.Overflow == OverflowQueue
}

// fail 业务错误原样返回，其余记录日志后转换为服务繁忙
func fail(msg string, err error, fields ...zap.Field) error {
	if errorx.IsBusiness(err) {
		return err
	}
	zap.L().Error(msg, append(fields, zap.Error(err))...)
	return errorx.ErrServerBusy
}

// StartSession 客户发起会话
// 创建、挑选坐席、绑定在同一事务内完成：
//   - reject 模式下无可用坐席则整体回滚并返回 NoAgentAvailable
//   - queue 模式下保持 pending，按先来后到等待空位
func (s *sessionService) StartSession(ctx context.Context, caller access.Caller) (*respond.SessionRespond, error) {
	if caller.Role != role_enum.Customer {
		return nil, errorx.New(errorx.CodeForbidden, "只有客户可以发起会话")
	}
	customerId := caller.UserID
	repos := s.repos.WithContext(ctx)
	now := s.now()

	var session *model.Session
	err := repos.Transaction(func(tx *repository.Repositories) error {
		created, err := createSession(tx, customerId, now)
		if err != nil {
			return err
		}
		session = created

		if s.queueMode() {
			// 前面还有人排队时不插队
			ahead, err := tx.Session.CountPendingAhead(created)
			if err != nil {
				return err
			}
			if ahead > 0 {
				return nil
			}
		}

		agentId, err := s.assigner.Pick(tx, customerId)
		if errorx.HasCode(err, errorx.CodeNoAgentAvailable) && s.queueMode() {
			return nil
		}
		if err != nil {
			return err
		}
		bound, err := bindAgent(tx, created.Uuid, agentId, now)
		if err != nil {
			return err
		}
		session = bound
		return nil
	})
	if err != nil {
		if errorx.IsBusiness(err) {
			zap.L().Info("发起会话被拒绝", zap.String("customer_id", customerId), zap.Int("code", errorx.GetCode(err)))
		}
		return nil, fail("发起会话失败", err, zap.String("customer_id", customerId))
	}

	if session.State == session_state_enum.Pending {
		zap.L().Info("会话进入排队", zap.String("session_id", session.Uuid), zap.String("customer_id", customerId))
		// 提交后可能已有空位
		s.DrainQueue(ctx)
		return s.describe(ctx, session.Uuid)
	}

	s.assigner.Committed(session.AgentId)
	zap.L().Info("会话已分配坐席",
		zap.String("session_id", session.Uuid),
		zap.String("customer_id", customerId),
		zap.String("agent_id", session.AgentId),
		zap.String("strategy", s.assigner.StrategyName()),
	)
	rsp := toRespond(session)
	return &rsp, nil
}

// BindAgent 将 pending 会话绑定到指定坐席，管理员手动分配时使用
func (s *sessionService) BindAgent(ctx context.Context, caller access.Caller, sessionId, agentId string) (*respond.SessionRespond, error) {
	if !caller.IsAdmin() {
		return nil, errorx.ErrForbidden
	}
	repos := s.repos.WithContext(ctx)
	if _, err := repos.Agent.FindByAgentId(agentId); err != nil {
		return nil, fail("查询坐席失败", err, zap.String("agent_id", agentId))
	}

	var session *model.Session
	err := repos.Transaction(func(tx *repository.Repositories) error {
		var err error
		session, err = bindAgent(tx, sessionId, agentId, s.now())
		return err
	})
	if err != nil {
		return nil, fail("绑定坐席失败", err, zap.String("session_id", sessionId), zap.String("agent_id", agentId))
	}
	zap.L().Info("会话手动分配", zap.String("session_id", sessionId), zap.String("agent_id", agentId))
	rsp := toRespond(session)
	return &rsp, nil
}

// EndSession 结束会话
// 幂等：已结束的会话再次结束返回成功，Changed 为 false
// 只有真正完成迁移的一次调用会发布结束事件
func (s *sessionService) EndSession(ctx context.Context, caller access.Caller, sessionId string) (*respond.EndSessionRespond, error) {
	repos := s.repos.WithContext(ctx)
	session, err := repos.Session.FindByUuid(sessionId)
	if err != nil {
		return nil, fail("查询会话失败", err, zap.String("session_id", sessionId))
	}
	if !access.CanEnd(caller, session) {
		return nil, errorx.ErrForbidden
	}

	changed, err := repos.Session.End(sessionId, caller.UserID, s.now())
	if err != nil {
		return nil, fail("结束会话失败", err, zap.String("session_id", sessionId))
	}
	session, err = repos.Session.FindByUuid(sessionId)
	if err != nil {
		return nil, fail("查询会话失败", err, zap.String("session_id", sessionId))
	}

	rsp := &respond.EndSessionRespond{
		SessionId: session.Uuid,
		State:     session.State,
		Changed:   changed,
	}
	if session.EndedAt.Valid {
		t := session.EndedAt.Time
		rsp.EndedAt = &t
	}
	if !changed {
		zap.L().Debug("会话已结束，忽略重复结束", zap.String("session_id", sessionId), zap.String("requester", caller.UserID))
		return rsp, nil
	}

	zap.L().Info("会话结束",
		zap.String("session_id", sessionId),
		zap.String("agent_id", session.AgentId),
		zap.String("ended_by", caller.UserID),
		zap.String("outcome", session.Outcome),
	)
	if s.notifier != nil {
		s.notifier.Notify(sessionId, constants.HINT_EVENT_ENDED, session.LastMessageId)
	}
	if s.publisher != nil {
		// 发布失败由统计补偿扫描兜底
		if err := s.publisher.PublishClosed(ctx, sessionId, session.AgentId); err != nil {
			zap.L().Warn("发布会话结束事件失败", zap.String("session_id", sessionId), zap.Error(err))
		}
	}
	// 坐席释放了一个位置
	s.DrainQueue(ctx)
	return rsp, nil
}

// SetOutcome 更新会话结果
// active 时生效；已结束时忽略并返回冻结值；pending 时返回 SessionNotActive
func (s *sessionService) SetOutcome(ctx context.Context, caller access.Caller, sessionId, outcome string) (*respond.OutcomeRespond, error) {
	if !outcome_enum.Valid(outcome) {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的会话结果 %s", outcome)
	}
	repos := s.repos.WithContext(ctx)
	session, err := repos.Session.FindByUuid(sessionId)
	if err != nil {
		return nil, fail("查询会话失败", err, zap.String("session_id", sessionId))
	}
	if !access.CanSetOutcome(caller, session) {
		return nil, errorx.ErrForbidden
	}

	applied, err := repos.Session.SetOutcome(sessionId, outcome)
	if err != nil {
		return nil, fail("更新会话结果失败", err, zap.String("session_id", sessionId))
	}
	if applied {
		zap.L().Info("会话结果更新", zap.String("session_id", sessionId), zap.String("outcome", outcome))
		return &respond.OutcomeRespond{SessionId: sessionId, Outcome: outcome, Applied: true}, nil
	}

	session, err = repos.Session.FindByUuid(sessionId)
	if err != nil {
		return nil, fail("查询会话失败", err, zap.String("session_id", sessionId))
	}
	if session.State != session_state_enum.Ended {
		return nil, errorx.ErrSessionNotActive
	}
	zap.L().Debug("会话已结束，结果保持冻结", zap.String("session_id", sessionId), zap.String("outcome", session.Outcome))
	return &respond.OutcomeRespond{SessionId: sessionId, Outcome: session.Outcome, Applied: false}, nil
}

// GetSession 会话详情，pending 时附带排队位置
func (s *sessionService) GetSession(ctx context.Context, caller access.Caller, sessionId string) (*respond.SessionRespond, error) {
	session, err := s.repos.WithContext(ctx).Session.FindByUuid(sessionId)
	if err != nil {
		return nil, fail("查询会话失败", err, zap.String("session_id", sessionId))
	}
	if !access.CanRead(caller, session) {
		return nil, errorx.ErrForbidden
	}
	return s.describe(ctx, sessionId)
}

// describe 读取会话并补充排队位置
func (s *sessionService) describe(ctx context.Context, sessionId string) (*respond.SessionRespond, error) {
	repos := s.repos.WithContext(ctx)
	session, err := repos.Session.FindByUuid(sessionId)
	if err != nil {
		return nil, fail("查询会话失败", err, zap.String("session_id", sessionId))
	}
	rsp := toRespond(session)
	if session.State == session_state_enum.Pending {
		ahead, err := repos.Session.CountPendingAhead(session)
		if err != nil {
			return nil, fail("查询排队位置失败", err, zap.String("session_id", sessionId))
		}
		rsp.QueuePosition = &ahead
	}
	return &rsp, nil
}

// ListActiveForAgent 坐席进行中的会话，数量每次从会话表重新统计
func (s *sessionService) ListActiveForAgent(ctx context.Context, caller access.Caller, agentId string) (*respond.AssignedSessionsRespond, error) {
	if !access.CanViewAgent(caller, agentId) {
		return nil, errorx.ErrForbidden
	}
	sessions, err := s.repos.WithContext(ctx).Session.ListActiveByAgent(agentId)
	if err != nil {
		return nil, fail("查询坐席会话失败", err, zap.String("agent_id", agentId))
	}
	rsp := &respond.AssignedSessionsRespond{
		AgentId:  agentId,
		Count:    len(sessions),
		Sessions: make([]respond.SessionRespond, 0, len(sessions)),
	}
	for i := range sessions {
		rsp.Sessions = append(rsp.Sessions, toRespond(&sessions[i]))
	}
	return rsp, nil
}

// ListClosedForAgent 坐席已结束的会话，按结束时间倒序
func (s *sessionService) ListClosedForAgent(ctx context.Context, caller access.Caller, agentId string, limit int) ([]respond.SessionRespond, error) {
	if !access.CanViewAgent(caller, agentId) {
		return nil, errorx.ErrForbidden
	}
	sessions, err := s.repos.WithContext(ctx).Session.ListEndedByAgent(agentId, limit)
	if err != nil {
		return nil, fail("查询坐席历史会话失败", err, zap.String("agent_id", agentId))
	}
	rsp := make([]respond.SessionRespond, 0, len(sessions))
	for i := range sessions {
		rsp = append(rsp, toRespond(&sessions[i]))
	}
	return rsp, nil
}
