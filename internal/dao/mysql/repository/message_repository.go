// Package repository 提供数据访问层的具体实现
// 本文件实现 MessageRepository 接口，处理消息相关的数据库操作
package repository

import (
	"support_chat_server/internal/model"

	"gorm.io/gorm"
)

// messageRepository MessageRepository 接口的实现
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 写入一条消息
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBErrorf(err, "写入消息 session=%s seq=%d", message.SessionId, message.Seq)
	}
	return nil
}

// ListSince 增量拉取
func (r *messageRepository) ListSince(sessionId string, sinceId int64, limit int) ([]model.Message, error) {
	var messages []model.Message
	err := limitIf(r.db, limit).
		Where("session_id = ? AND seq > ?", sessionId, sinceId).
		Order("seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询消息 session=%s since=%d", sessionId, sinceId)
	}
	return messages, nil
}

// ListBySession 会话全部消息，按 seq 升序
func (r *messageRepository) ListBySession(sessionId string) ([]model.Message, error) {
	return r.ListSince(sessionId, 0, 0)
}
