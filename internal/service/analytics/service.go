// Package analytics 统计聚合
// 会话结束后计算卡片并计入坐席汇总与全局汇总，
// 每个会话只计入一次，计入顺序不影响最终结果
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	myredis "support_chat_server/internal/dao/redis"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/access"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// AgentLogs 坐席历史：已结束会话卡片与坐席汇总
type AgentLogs struct {
	AgentId string   `json:"agent_id"`
	Cards   []Card   `json:"cards"`
	Summary *Summary `json:"summary"`
}

// CustomerHistory 客户历史会话卡片
type CustomerHistory struct {
	CustomerId string `json:"customer_id"`
	Cards      []Card `json:"cards"`
}

// analyticsService 统计业务逻辑实现
type analyticsService struct {
	repos *repository.Repositories
	cache myredis.AsyncCacheService
	cfg   config.AnalyticsConfig
	now   func() time.Time
}

// NewAnalyticsService 构造函数，cache 为 nil 时不使用缓存
func NewAnalyticsService(repos *repository.Repositories, cache myredis.AsyncCacheService, cfg config.AnalyticsConfig) *analyticsService {
	return &analyticsService{
		repos: repos,
		cache: cache,
		cfg:   cfg,
		now:   time.Now,
	}
}

// HandleClosedEvent 事件总线回调
// 会话不存在或未结束的事件无法重试成功，记录后丢弃
func (a *analyticsService) HandleClosedEvent(ctx context.Context, evt SessionClosedEvent) error {
	_, err := a.OnSessionClosed(ctx, evt.SessionId)
	if err != nil && errorx.IsBusiness(err) {
		zap.L().Warn("丢弃无法处理的会话结束事件", zap.String("session_id", evt.SessionId), zap.Error(err))
		return nil
	}
	return err
}

// OnSessionClosed 将已结束会话计入汇总
// 登记表与两份汇总在同一事务中更新；已登记过的会话返回 false
func (a *analyticsService) OnSessionClosed(ctx context.Context, sessionId string) (bool, error) {
	repos := a.repos.WithContext(ctx)
	session, err := repos.Session.FindByUuid(sessionId)
	if err != nil {
		return false, err
	}
	if session.State != session_state_enum.Ended {
		return false, errorx.Newf(errorx.CodeInvalidState, "会话 %s 尚未结束", sessionId)
	}
	messages, err := repos.Message.ListBySession(sessionId)
	if err != nil {
		return false, err
	}
	card := BuildCard(session, messages)

	folded := false
	fresh := make(map[string]*Summary, 2)
	err = repos.Transaction(func(tx *repository.Repositories) error {
		claimed, err := tx.Analytics.ClaimFold(sessionId, session.AgentId, a.now())
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		scopes := []string{model.FleetScope}
		if session.AgentId != "" {
			scopes = append(scopes, model.AgentScope(session.AgentId))
		}
		for _, scope := range scopes {
			row, err := tx.Analytics.FindSummaryForUpdate(scope)
			if err != nil {
				return err
			}
			summary := fromModel(row)
			summary.Fold(card)
			summary.applyTo(row)
			if err := tx.Analytics.SaveSummary(row); err != nil {
				return err
			}
			fresh[scope] = summary
		}
		folded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !folded {
		zap.L().Debug("会话已计入统计，跳过", zap.String("session_id", sessionId))
		return false, nil
	}

	zap.L().Info("会话计入统计",
		zap.String("session_id", sessionId),
		zap.String("agent_id", session.AgentId),
		zap.String("outcome", session.Outcome),
		zap.Int("messages", card.MessageCount),
	)
	a.writeThrough(ctx, session.AgentId, fresh)
	return true, nil
}

// writeThrough 事务提交后同步写入新汇总
// 写入带版本，读路径上并发加载的旧快照无法覆盖；写入失败时删除旧值
func (a *analyticsService) writeThrough(ctx context.Context, agentId string, fresh map[string]*Summary) {
	if a.cache == nil {
		return
	}
	for scope, summary := range fresh {
		key := constants.CACHE_FLEET_SUMMARY
		if scope != model.FleetScope {
			key = constants.CACHE_AGENT_SUMMARY + agentId
		}
		if a.writeSummary(ctx, key, summary) {
			continue
		}
		if err := a.cache.Delete(ctx, key); err != nil {
			zap.L().Warn("删除统计缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
}

// GetAgentSummary 坐席汇总快照
func (a *analyticsService) GetAgentSummary(ctx context.Context, caller access.Caller, agentId string) (*Summary, error) {
	if !access.CanViewAgent(caller, agentId) {
		return nil, errorx.ErrForbidden
	}
	return a.summary(ctx, model.AgentScope(agentId), constants.CACHE_AGENT_SUMMARY+agentId)
}

// GetFleetSummary 全局汇总快照
func (a *analyticsService) GetFleetSummary(ctx context.Context, caller access.Caller) (*Summary, error) {
	if !access.CanViewFleet(caller) {
		return nil, errorx.ErrForbidden
	}
	return a.summary(ctx, model.FleetScope, constants.CACHE_FLEET_SUMMARY)
}

// summary 缓存旁路读取汇总，没有任何会话计入时返回空汇总
func (a *analyticsService) summary(ctx context.Context, scope, cacheKey string) (*Summary, error) {
	var cached Summary
	if a.readCache(ctx, cacheKey, &cached) {
		cached.ensure()
		return &cached, nil
	}

	row, err := a.repos.WithContext(ctx).Analytics.FindSummary(scope)
	var summary *Summary
	switch {
	case errorx.IsNotFound(err):
		summary = NewSummary()
	case err != nil:
		zap.L().Error("查询统计汇总失败", zap.String("scope", scope), zap.Error(err))
		return nil, errorx.ErrServerBusy
	default:
		summary = fromModel(row)
	}

	a.writeSummary(ctx, cacheKey, summary)
	return summary, nil
}

// SessionCard 单个会话卡片，已结束会话的卡片不再变化，可长期缓存
func (a *analyticsService) SessionCard(ctx context.Context, caller access.Caller, sessionId string) (*Card, error) {
	session, err := a.repos.WithContext(ctx).Session.FindByUuid(sessionId)
	if err != nil {
		if errorx.IsBusiness(err) {
			return nil, err
		}
		zap.L().Error("查询会话失败", zap.String("session_id", sessionId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !access.CanRead(caller, session) {
		return nil, errorx.ErrForbidden
	}
	card, err := a.cardOf(ctx, session)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// cardOf 计算或读取缓存的卡片
func (a *analyticsService) cardOf(ctx context.Context, session *model.Session) (Card, error) {
	ended := session.State == session_state_enum.Ended
	cacheKey := constants.CACHE_SESSION_CARD + session.Uuid
	if ended {
		var cached Card
		if a.readCache(ctx, cacheKey, &cached) {
			return cached, nil
		}
	}

	messages, err := a.repos.WithContext(ctx).Message.ListBySession(session.Uuid)
	if err != nil {
		zap.L().Error("查询会话消息失败", zap.String("session_id", session.Uuid), zap.Error(err))
		return Card{}, errorx.ErrServerBusy
	}
	card := BuildCard(session, messages)
	if ended {
		a.writeCardAsync(cacheKey, card)
	}
	return card, nil
}

// AgentLogs 坐席已结束会话的卡片及坐席汇总
func (a *analyticsService) AgentLogs(ctx context.Context, caller access.Caller, agentId string, limit int) (*AgentLogs, error) {
	if !access.CanViewAgent(caller, agentId) {
		return nil, errorx.ErrForbidden
	}
	sessions, err := a.repos.WithContext(ctx).Session.ListEndedByAgent(agentId, limit)
	if err != nil {
		zap.L().Error("查询坐席历史会话失败", zap.String("agent_id", agentId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	cards, err := a.cardsOf(ctx, sessions)
	if err != nil {
		return nil, err
	}
	summary, err := a.summary(ctx, model.AgentScope(agentId), constants.CACHE_AGENT_SUMMARY+agentId)
	if err != nil {
		return nil, err
	}
	return &AgentLogs{AgentId: agentId, Cards: cards, Summary: summary}, nil
}

// CustomerHistory 客户本人的已结束会话卡片
func (a *analyticsService) CustomerHistory(ctx context.Context, caller access.Caller, limit int) (*CustomerHistory, error) {
	if caller.Role != role_enum.Customer {
		return nil, errorx.New(errorx.CodeForbidden, "只有客户可以查看自己的历史会话")
	}
	sessions, err := a.repos.WithContext(ctx).Session.ListEndedByCustomer(caller.UserID, limit)
	if err != nil {
		zap.L().Error("查询客户历史会话失败", zap.String("customer_id", caller.UserID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	cards, err := a.cardsOf(ctx, sessions)
	if err != nil {
		return nil, err
	}
	return &CustomerHistory{CustomerId: caller.UserID, Cards: cards}, nil
}

func (a *analyticsService) cardsOf(ctx context.Context, sessions []model.Session) ([]Card, error) {
	cards := make([]Card, 0, len(sessions))
	for i := range sessions {
		card, err := a.cardOf(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Reconcile 补偿聚合：计入所有已结束但未登记的会话
// 覆盖事件丢失、进程在发布前退出等情况，返回本次计入的数量
func (a *analyticsService) Reconcile(ctx context.Context) (int, error) {
	total := 0
	for ctx.Err() == nil {
		sessions, err := a.repos.WithContext(ctx).Session.ListEndedUnfolded(constants.RECONCILE_BATCH)
		if err != nil {
			return total, err
		}
		if len(sessions) == 0 {
			break
		}
		for _, s := range sessions {
			folded, err := a.OnSessionClosed(ctx, s.Uuid)
			if err != nil {
				return total, err
			}
			if folded {
				total++
			}
		}
		if len(sessions) < constants.RECONCILE_BATCH {
			break
		}
	}
	return total, nil
}

// RunReconciler 启动时执行一次补偿，之后按间隔执行，直到 ctx 取消
func (a *analyticsService) RunReconciler(ctx context.Context, interval time.Duration) {
	run := func() {
		n, err := a.Reconcile(ctx)
		if err != nil && ctx.Err() == nil {
			zap.L().Error("补偿聚合失败", zap.Error(err))
		}
		if n > 0 {
			zap.L().Info("补偿聚合完成", zap.Int("folded", n))
		}
	}
	run()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// readCache 缓存命中返回 true，缓存故障视为未命中
func (a *analyticsService) readCache(ctx context.Context, key string, dst any) bool {
	if a.cache == nil {
		return false
	}
	raw, err := a.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("读取缓存失败", zap.String("key", key), zap.Error(err))
		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		zap.L().Warn("缓存内容解析失败", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// writeSummary 以已计入会话数为版本写入汇总，汇总只增不减，版本单调
// 返回 false 表示写入失败；被更新版本拒绝不算失败
func (a *analyticsService) writeSummary(ctx context.Context, key string, summary *Summary) bool {
	ttl := time.Duration(a.cfg.CacheTtlSeconds) * time.Second
	if a.cache == nil || ttl <= 0 {
		return false
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		zap.L().Warn("缓存序列化失败", zap.String("key", key), zap.Error(err))
		return false
	}
	written, err := a.cache.SetIfNewer(ctx, key, summary.Sessions, string(raw), ttl)
	if err != nil {
		zap.L().Warn("写入统计缓存失败", zap.String("key", key), zap.Error(err))
		return false
	}
	if !written {
		zap.L().Debug("缓存中已有更新的汇总", zap.String("key", key), zap.Int64("version", summary.Sessions))
	}
	return true
}

// writeCardAsync 已结束会话的卡片不再变化，交给 worker pool 写入
func (a *analyticsService) writeCardAsync(key string, card Card) {
	ttl := time.Duration(a.cfg.CardCacheTtlSeconds) * time.Second
	if a.cache == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(card)
	if err != nil {
		zap.L().Warn("缓存序列化失败", zap.String("key", key), zap.Error(err))
		return
	}
	a.cache.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.cache.Set(ctx, key, string(raw), ttl); err != nil {
			zap.L().Warn("写入卡片缓存失败", zap.String("key", key), zap.Error(err))
		}
	})
}
