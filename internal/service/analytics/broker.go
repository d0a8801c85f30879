package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/pkg/constants"

	"go.uber.org/zap"
)

// SessionClosedEvent 会话结束事件
type SessionClosedEvent struct {
	SessionId string    `json:"session_id"`
	AgentId   string    `json:"agent_id"`
	ClosedAt  time.Time `json:"closed_at"`
}

// EventHandler 事件处理函数
type EventHandler func(ctx context.Context, evt SessionClosedEvent) error

// Broker 会话结束事件总线
// 支持两种实现：ChannelBroker（单机）、KafkaBroker（多实例）
type Broker interface {
	// PublishClosed 发布会话结束事件
	PublishClosed(ctx context.Context, sessionId, agentId string) error
	// Start 启动消费循环，直到 ctx 取消
	Start(ctx context.Context, handle EventHandler)
	// Close 释放资源
	Close()
}

// NewBroker 按 messageMode 创建事件总线
func NewBroker(cfg config.KafkaConfig) Broker {
	if cfg.MessageMode == "kafka" {
		return NewKafkaBroker(mq.NewKafkaClient(cfg))
	}
	return NewChannelBroker(constants.CHANNEL_SIZE)
}

// ==================== Channel 实现 ====================

// ChannelBroker 进程内事件总线
type ChannelBroker struct {
	events chan SessionClosedEvent
	wg     sync.WaitGroup
}

// NewChannelBroker 创建进程内事件总线
func NewChannelBroker(size int) *ChannelBroker {
	return &ChannelBroker{events: make(chan SessionClosedEvent, size)}
}

// PublishClosed 通道满时阻塞直到 ctx 取消
func (b *ChannelBroker) PublishClosed(ctx context.Context, sessionId, agentId string) error {
	evt := SessionClosedEvent{SessionId: sessionId, AgentId: agentId, ClosedAt: time.Now()}
	select {
	case b.events <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start 启动消费协程
func (b *ChannelBroker) Start(ctx context.Context, handle EventHandler) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-b.events:
				if err := handle(ctx, evt); err != nil {
					zap.L().Error("处理会话结束事件失败", zap.String("session_id", evt.SessionId), zap.Error(err))
				}
			}
		}
	}()
}

// Close 等待消费协程退出
func (b *ChannelBroker) Close() {
	b.wg.Wait()
}

// ==================== Kafka 实现 ====================

// KafkaBroker 基于 Kafka 的事件总线，key 为 session_id
type KafkaBroker struct {
	client *mq.KafkaClient
	wg     sync.WaitGroup
}

// NewKafkaBroker 创建 Kafka 事件总线
func NewKafkaBroker(client *mq.KafkaClient) *KafkaBroker {
	return &KafkaBroker{client: client}
}

// PublishClosed 写入 Kafka
func (b *KafkaBroker) PublishClosed(ctx context.Context, sessionId, agentId string) error {
	payload, err := json.Marshal(SessionClosedEvent{SessionId: sessionId, AgentId: agentId, ClosedAt: time.Now()})
	if err != nil {
		return err
	}
	return b.client.WriteMessage(ctx, []byte(sessionId), payload)
}

// Start 创建主题并启动消费协程
func (b *KafkaBroker) Start(ctx context.Context, handle EventHandler) {
	if err := b.client.CreateTopic(); err != nil {
		zap.L().Warn("创建会话事件主题失败", zap.Error(err))
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.client.Consume(ctx, func(key, value []byte) error {
			var evt SessionClosedEvent
			if err := json.Unmarshal(value, &evt); err != nil {
				// 格式错误的事件无法重试，直接跳过
				zap.L().Error("解析会话结束事件失败", zap.ByteString("key", key), zap.Error(err))
				return nil
			}
			return handle(ctx, evt)
		})
	}()
}

// Close 等待消费协程退出后关闭连接
func (b *KafkaBroker) Close() {
	b.wg.Wait()
	b.client.Close()
}
