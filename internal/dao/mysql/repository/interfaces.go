package repository

import (
	"context"
	"time"

	"support_chat_server/internal/model"

	"gorm.io/gorm"
)

// ==================== Repository 接口定义 ====================

// SessionRepository 会话数据访问接口
// 所有状态迁移都是带前置状态条件的 UPDATE，返回值表示本次调用是否真正完成迁移
type SessionRepository interface {
	// Create 创建会话，客户已有未结束会话时返回 CodeAlreadyActive
	Create(session *model.Session) error
	// FindByUuid 根据会话 ID 查找
	FindByUuid(uuid string) (*model.Session, error)
	// FindByUuidForUpdate 加行锁读取会话，仅在事务内使用
	FindByUuidForUpdate(uuid string) (*model.Session, error)
	// FindLiveByCustomer 查找客户未结束的会话
	FindLiveByCustomer(customerId string) (*model.Session, error)
	// BindAgent pending -> active
	BindAgent(uuid, agentId string, at time.Time) (bool, error)
	// End pending/active -> ended，并释放客户的唯一占位
	End(uuid, endedBy string, at time.Time) (bool, error)
	// SetOutcome 仅在 active 时生效
	SetOutcome(uuid, outcome string) (bool, error)
	// SetLastMessageId 更新会话内最大消息序号
	SetLastMessageId(uuid string, seq int64) error
	// CountActiveByAgents 统计每个坐席当前 active 会话数
	CountActiveByAgents(agentIds []string) (map[string]int64, error)
	// ListActiveByAgent 坐席当前进行中的会话，按绑定时间升序
	ListActiveByAgent(agentId string) ([]model.Session, error)
	// ListEndedByAgent 坐席已结束的会话，按结束时间倒序
	ListEndedByAgent(agentId string, limit int) ([]model.Session, error)
	// ListEndedByCustomer 客户已结束的会话，按结束时间倒序
	ListEndedByCustomer(customerId string, limit int) ([]model.Session, error)
	// ListPending 排队中的会话，按创建顺序
	ListPending(limit int) ([]model.Session, error)
	// CountPendingAhead 排在指定会话之前的排队数
	CountPendingAhead(session *model.Session) (int64, error)
	// ListEndedUnfolded 已结束但尚未计入统计的会话
	ListEndedUnfolded(limit int) ([]model.Session, error)
}

// MessageRepository 消息数据访问接口
// 只追加，不提供修改与删除
type MessageRepository interface {
	// Create 写入一条消息
	Create(message *model.Message) error
	// ListSince 返回 seq > sinceId 的消息，按 seq 升序
	ListSince(sessionId string, sinceId int64, limit int) ([]model.Message, error)
	// ListBySession 返回会话的全部消息
	ListBySession(sessionId string) ([]model.Message, error)
}

// AgentRepository 坐席名册数据访问接口
type AgentRepository interface {
	// Upsert 按 agent_id 写入名称与容量，不改动接单状态
	Upsert(agent *model.Agent) error
	// Create 创建坐席
	Create(agent *model.Agent) error
	// FindByAgentId 根据坐席 ID 查找
	FindByAgentId(agentId string) (*model.Agent, error)
	// ListAvailableForUpdate 加行锁读取所有接单中的坐席，按 agent_id 排序
	ListAvailableForUpdate() ([]model.Agent, error)
	// ListAll 全部坐席
	ListAll() ([]model.Agent, error)
	// SetAvailable 修改接单状态
	SetAvailable(agentId string, available bool) (bool, error)
}

// AnalyticsRepository 统计数据访问接口
type AnalyticsRepository interface {
	// ClaimFold 登记会话已聚合，返回 false 表示此前已登记
	ClaimFold(sessionId, agentId string, at time.Time) (bool, error)
	// IsFolded 会话是否已聚合
	IsFolded(sessionId string) (bool, error)
	// FindSummaryForUpdate 加锁读取汇总行，不存在时先创建空行
	FindSummaryForUpdate(scope string) (*model.AnalyticsSummary, error)
	// FindSummary 只读查询汇总行
	FindSummary(scope string) (*model.AnalyticsSummary, error)
	// SaveSummary 保存汇总行
	SaveSummary(summary *model.AnalyticsSummary) error
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db        *gorm.DB
	Session   SessionRepository
	Message   MessageRepository
	Agent     AgentRepository
	Analytics AnalyticsRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Session:   NewSessionRepository(db),
		Message:   NewMessageRepository(db),
		Agent:     NewAgentRepository(db),
		Analytics: NewAnalyticsRepository(db),
	}
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
// fn 内只能使用 txRepos，不能再使用外层 Repositories
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// WithContext 返回绑定请求上下文的 Repositories，超时与取消会传递到 SQL
func (r *Repositories) WithContext(ctx context.Context) *Repositories {
	return NewRepositories(r.db.WithContext(ctx))
}

// Ping 检查数据库连通性，供健康检查使用
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
