// Package repository 提供数据访问层的具体实现
// 本文件实现 SessionRepository 接口，处理会话相关的数据库操作
package repository

import (
	"time"

	"support_chat_server/internal/model"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/errorx"

	"gorm.io/gorm"
)

// sessionRepository SessionRepository 接口的实现
type sessionRepository struct {
	db *gorm.DB // GORM 数据库实例
}

// NewSessionRepository 创建 SessionRepository 实例
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create 创建会话
// live_customer_id 唯一索引冲突即说明客户已有未结束会话
func (r *sessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		if IsDuplicateKey(err) {
			return errorx.Wrapf(err, errorx.CodeAlreadyActive, "客户 %s 已有进行中的会话", session.CustomerId)
		}
		return wrapDBError(err, "创建会话")
	}
	return nil
}

// FindByUuid 根据会话 ID 查找
func (r *sessionRepository) FindByUuid(uuid string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("uuid = ?", uuid).First(&session).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 %s", uuid)
	}
	return &session, nil
}

// FindByUuidForUpdate 加行锁读取会话
func (r *sessionRepository) FindByUuidForUpdate(uuid string) (*model.Session, error) {
	var session model.Session
	if err := lockForUpdate(r.db).Where("uuid = ?", uuid).First(&session).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 %s", uuid)
	}
	return &session, nil
}

// FindLiveByCustomer 查找客户未结束的会话
func (r *sessionRepository) FindLiveByCustomer(customerId string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("live_customer_id = ?", customerId).First(&session).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询客户 %s 的进行中会话", customerId)
	}
	return &session, nil
}

// BindAgent pending -> active
func (r *sessionRepository) BindAgent(uuid, agentId string, at time.Time) (bool, error) {
	res := r.db.Model(&model.Session{}).
		Where("uuid = ? AND state = ?", uuid, session_state_enum.Pending).
		Updates(map[string]any{
			"agent_id": agentId,
			"state":    session_state_enum.Active,
			"bound_at": at,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "绑定坐席 session=%s agent=%s", uuid, agentId)
	}
	return res.RowsAffected == 1, nil
}

// End pending/active -> ended
// 同时清空 live_customer_id，释放客户的唯一占位
func (r *sessionRepository) End(uuid, endedBy string, at time.Time) (bool, error) {
	res := r.db.Model(&model.Session{}).
		Where("uuid = ? AND state IN ?", uuid, []string{session_state_enum.Pending, session_state_enum.Active}).
		Updates(map[string]any{
			"state":            session_state_enum.Ended,
			"ended_at":         at,
			"ended_by":         endedBy,
			"live_customer_id": nil,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "结束会话 %s", uuid)
	}
	return res.RowsAffected == 1, nil
}

// SetOutcome 仅在 active 时生效
func (r *sessionRepository) SetOutcome(uuid, outcome string) (bool, error) {
	res := r.db.Model(&model.Session{}).
		Where("uuid = ? AND state = ?", uuid, session_state_enum.Active).
		Update("outcome", outcome)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "更新会话结果 %s", uuid)
	}
	return res.RowsAffected == 1, nil
}

// SetLastMessageId 更新会话内最大消息序号
func (r *sessionRepository) SetLastMessageId(uuid string, seq int64) error {
	if err := r.db.Model(&model.Session{}).Where("uuid = ?", uuid).Update("last_message_id", seq).Error; err != nil {
		return wrapDBErrorf(err, "更新会话序号 %s", uuid)
	}
	return nil
}

// CountActiveByAgents 统计每个坐席当前 active 会话数，没有会话的坐席不出现在结果中
// 使用共享锁读取最新已提交数据，可重复读隔离级别下也不会读到事务开始时的旧快照
func (r *sessionRepository) CountActiveByAgents(agentIds []string) (map[string]int64, error) {
	loads := make(map[string]int64, len(agentIds))
	if len(agentIds) == 0 {
		return loads, nil
	}
	var owners []string
	err := lockForShare(r.db).Model(&model.Session{}).
		Where("state = ? AND agent_id IN ?", session_state_enum.Active, agentIds).
		Pluck("agent_id", &owners).Error
	if err != nil {
		return nil, wrapDBError(err, "统计坐席负载")
	}
	for _, agentId := range owners {
		loads[agentId]++
	}
	return loads, nil
}

// ListActiveByAgent 坐席当前进行中的会话
func (r *sessionRepository) ListActiveByAgent(agentId string) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.Where("agent_id = ? AND state = ?", agentId, session_state_enum.Active).
		Order("bound_at ASC, id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询坐席 %s 进行中会话", agentId)
	}
	return sessions, nil
}

// ListEndedByAgent 坐席已结束的会话
func (r *sessionRepository) ListEndedByAgent(agentId string, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := limitIf(r.db, limit).
		Where("agent_id = ? AND state = ?", agentId, session_state_enum.Ended).
		Order("ended_at DESC, id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询坐席 %s 已结束会话", agentId)
	}
	return sessions, nil
}

// ListEndedByCustomer 客户已结束的会话
func (r *sessionRepository) ListEndedByCustomer(customerId string, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := limitIf(r.db, limit).
		Where("customer_id = ? AND state = ?", customerId, session_state_enum.Ended).
		Order("ended_at DESC, id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询客户 %s 历史会话", customerId)
	}
	return sessions, nil
}

// ListPending 排队中的会话，自增 id 即排队顺序
func (r *sessionRepository) ListPending(limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := limitIf(r.db, limit).
		Where("state = ?", session_state_enum.Pending).
		Order("id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrapDBError(err, "查询排队会话")
	}
	return sessions, nil
}

// CountPendingAhead 排在指定会话之前的排队数
func (r *sessionRepository) CountPendingAhead(session *model.Session) (int64, error) {
	var count int64
	err := r.db.Model(&model.Session{}).
		Where("state = ? AND id < ?", session_state_enum.Pending, session.ID).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "查询排队位置 %s", session.Uuid)
	}
	return count, nil
}

// ListEndedUnfolded 已结束但尚未计入统计的会话
func (r *sessionRepository) ListEndedUnfolded(limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := limitIf(r.db, limit).
		Where("state = ?", session_state_enum.Ended).
		Where("NOT EXISTS (SELECT 1 FROM folded_session f WHERE f.session_id = session.uuid)").
		Order("id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrapDBError(err, "查询待聚合会话")
	}
	return sessions, nil
}
