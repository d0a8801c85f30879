package repository

import (
	"time"

	"support_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// analyticsRepository AnalyticsRepository 接口的实现
type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建 AnalyticsRepository 实例
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// ClaimFold 利用 session_id 唯一索引登记聚合
// 并发登记同一会话时只有一方 RowsAffected 为 1
func (r *analyticsRepository) ClaimFold(sessionId, agentId string, at time.Time) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.FoldedSession{
		SessionId: sessionId,
		AgentId:   agentId,
		FoldedAt:  at,
	})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "登记聚合 %s", sessionId)
	}
	return res.RowsAffected == 1, nil
}

// IsFolded 会话是否已聚合
func (r *analyticsRepository) IsFolded(sessionId string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.FoldedSession{}).Where("session_id = ?", sessionId).Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "查询聚合登记 %s", sessionId)
	}
	return count > 0, nil
}

// FindSummaryForUpdate 先插入空行再加锁读取
func (r *analyticsRepository) FindSummaryForUpdate(scope string) (*model.AnalyticsSummary, error) {
	empty := &model.AnalyticsSummary{Scope: scope}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(empty).Error; err != nil {
		return nil, wrapDBErrorf(err, "初始化汇总 %s", scope)
	}
	var summary model.AnalyticsSummary
	if err := lockForUpdate(r.db).Where("scope = ?", scope).First(&summary).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询汇总 %s", scope)
	}
	return &summary, nil
}

// FindSummary 只读查询，不存在时返回 CodeNotFound
func (r *analyticsRepository) FindSummary(scope string) (*model.AnalyticsSummary, error) {
	var summary model.AnalyticsSummary
	if err := r.db.Where("scope = ?", scope).First(&summary).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询汇总 %s", scope)
	}
	return &summary, nil
}

// SaveSummary 保存汇总行
func (r *analyticsRepository) SaveSummary(summary *model.AnalyticsSummary) error {
	if err := r.db.Save(summary).Error; err != nil {
		return wrapDBErrorf(err, "保存汇总 %s", summary.Scope)
	}
	return nil
}
