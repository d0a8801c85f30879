// Package mq 封装 Kafka 底层连接
// 只负责 Writer/Reader 的创建、写入、读取与关闭，不包含业务逻辑
package mq

import (
	"context"
	"errors"
	"time"

	myconfig "support_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaClient Kafka 客户端
type KafkaClient struct {
	Writer *kafka.Writer
	Reader *kafka.Reader
	cfg    myconfig.KafkaConfig
}

// NewKafkaClient 按配置创建客户端，此时不会建立连接
func NewKafkaClient(cfg myconfig.KafkaConfig) *KafkaClient {
	timeout := cfg.Timeout * time.Second
	return &KafkaClient{
		cfg: cfg,
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.HostPort),
			Topic:    cfg.SessionTopic,
			Balancer: &kafka.Hash{},
			// 会话结束事件丢失会导致统计缺失，需要 leader 确认
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.SessionTopic,
			GroupID:        cfg.GroupID,
			CommitInterval: timeout,
			StartOffset:    kafka.FirstOffset,
		}),
	}
}

// CreateTopic 创建会话事件主题，已存在时忽略
func (k *KafkaClient) CreateTopic() error {
	conn, err := kafka.Dial("tcp", k.cfg.HostPort)
	if err != nil {
		return err
	}
	defer conn.Close()

	partitions := k.cfg.Partition
	if partitions <= 0 {
		partitions = 1
	}
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             k.cfg.SessionTopic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return nil
	}
	return err
}

// WriteMessage 写入一条消息，key 决定分区
func (k *KafkaClient) WriteMessage(ctx context.Context, key, value []byte) error {
	return k.Writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Consume 阻塞消费直到 ctx 取消
// handler 返回 nil 后才提交 offset，处理失败的事件由统计补偿扫描兜底
func (k *KafkaClient) Consume(ctx context.Context, handler func(key, value []byte) error) {
	for {
		msg, err := k.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Error("kafka fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		zap.L().Debug("kafka message",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
		)
		if err := handler(msg.Key, msg.Value); err != nil {
			zap.L().Error("kafka handler failed", zap.ByteString("key", msg.Key), zap.Error(err))
			continue
		}
		if err := k.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			zap.L().Error("kafka commit failed", zap.Error(err))
		}
	}
}

// Close 关闭 Writer 与 Reader
func (k *KafkaClient) Close() {
	if err := k.Writer.Close(); err != nil {
		zap.L().Error("kafka writer close", zap.Error(err))
	}
	if err := k.Reader.Close(); err != nil {
		zap.L().Error("kafka reader close", zap.Error(err))
	}
}
