package repository

import (
	"support_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// agentRepository AgentRepository 接口的实现
type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建 AgentRepository 实例
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

// Upsert 配置中的名册每次启动写入一次
func (r *agentRepository) Upsert(agent *model.Agent) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "capacity", "updated_at"}),
	}).Create(agent).Error
	if err != nil {
		return wrapDBErrorf(err, "写入坐席 %s", agent.AgentId)
	}
	return nil
}

// Create 创建坐席
func (r *agentRepository) Create(agent *model.Agent) error {
	if err := r.db.Create(agent).Error; err != nil {
		return wrapDBErrorf(err, "创建坐席 %s", agent.AgentId)
	}
	return nil
}

// FindByAgentId 根据坐席 ID 查找
func (r *agentRepository) FindByAgentId(agentId string) (*model.Agent, error) {
	var agent model.Agent
	if err := r.db.Where("agent_id = ?", agentId).First(&agent).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询坐席 %s", agentId)
	}
	return &agent, nil
}

// ListAvailableForUpdate 锁住所有接单坐席
// 并发的分配请求在此处排队，保证负载读取与绑定原子
func (r *agentRepository) ListAvailableForUpdate() ([]model.Agent, error) {
	var agents []model.Agent
	err := lockForUpdate(r.db).
		Where("available = ?", true).
		Order("agent_id ASC").
		Find(&agents).Error
	if err != nil {
		return nil, wrapDBError(err, "查询可用坐席")
	}
	return agents, nil
}

// ListAll 全部坐席
func (r *agentRepository) ListAll() ([]model.Agent, error) {
	var agents []model.Agent
	if err := r.db.Order("agent_id ASC").Find(&agents).Error; err != nil {
		return nil, wrapDBError(err, "查询坐席名册")
	}
	return agents, nil
}

// SetAvailable 修改接单状态
func (r *agentRepository) SetAvailable(agentId string, available bool) (bool, error) {
	res := r.db.Model(&model.Agent{}).Where("agent_id = ?", agentId).Update("available", available)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "更新坐席 %s 状态", agentId)
	}
	return res.RowsAffected == 1, nil
}
