// Package redis 定义缓存服务接口
// Service 层依赖此接口而非具体 Redis 实现
package redis

import (
	"context"
	"time"
)

// CacheService 缓存服务接口
type CacheService interface {
	// Set 设置键值对并指定过期时间
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetIfNewer 版本号不低于已写入版本时才写入，返回是否写入
	SetIfNewer(ctx context.Context, key string, version int64, value string, ttl time.Duration) (bool, error)
	// Get 获取键对应的值（键不存在返回空字符串和 nil）
	Get(ctx context.Context, key string) (string, error)
	// Delete 删除一个或多个键，不存在的键忽略
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern 删除匹配模式的所有键
	DeleteByPattern(ctx context.Context, pattern string) error
	// Ping 连通性检查
	Ping(ctx context.Context) error
}

// AsyncCacheService 异步缓存服务接口
// 提供异步任务提交能力，用于不影响一致性的非阻塞缓存写入
type AsyncCacheService interface {
	CacheService
	// SubmitTask 提交异步缓存任务
	SubmitTask(action func())
}
