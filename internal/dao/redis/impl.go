// Package redis 提供 CacheService 接口的 Redis 实现
package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"support_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache Redis 缓存实现
// 同时实现 CacheService 与 AsyncCacheService，
// 只读缓存的模块依赖 CacheService，需要异步失效的模块依赖 AsyncCacheService
type RedisCache struct {
	client    *redis.Client
	taskChan  chan func()
	workerNum int
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRedisCache 创建 Redis 缓存实例并启动 Worker Pool
func NewRedisCache(client *redis.Client, workerNum, taskChanSize int) *RedisCache {
	if workerNum <= 0 {
		workerNum = 1
	}
	if taskChanSize < 0 {
		taskChanSize = 0
	}
	rc := &RedisCache{
		client:    client,
		taskChan:  make(chan func(), taskChanSize),
		workerNum: workerNum,
	}
	rc.wg.Add(workerNum)
	for i := 0; i < workerNum; i++ {
		go rc.startWorker()
	}
	zap.L().Info("Redis Cache Workers started", zap.Int("workers", workerNum), zap.Int("buffer", taskChanSize))
	return rc
}

// startWorker 单个 Worker 消费循环
func (r *RedisCache) startWorker() {
	defer r.wg.Done()
	for task := range r.taskChan {
		r.runTask(task)
	}
}

// runTask 执行任务，单个任务 panic 不影响 Worker
func (r *RedisCache) runTask(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("Redis Worker panic", zap.Any("recover", rec))
		}
	}()
	if task != nil {
		task()
	}
}

// Set 设置键值对并指定过期时间
func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

// setIfNewerScript 版本号不低于已写入版本时才覆盖值
// KEYS[1] 值 KEYS[2] 版本号；ARGV[1] 版本 ARGV[2] 值 ARGV[3] 过期毫秒，0 表示不过期
var setIfNewerScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '-1')
if cur > tonumber(ARGV[1]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
redis.call('SET', KEYS[2], ARGV[1])
return 1
`)

// SetIfNewer 带版本写入，版本号低于已写入版本时放弃并返回 false
// 版本号单独存放在 key+":ver"，不随值过期，保证旧快照在值过期后也无法回写
func (r *RedisCache) SetIfNewer(ctx context.Context, key string, version int64, value string, ttl time.Duration) (bool, error) {
	written, err := setIfNewerScript.Run(ctx, r.client, []string{key, key + ":ver"}, version, value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s with version %d", key, version)
	}
	return written == 1, nil
}

// Get 获取键对应的值（键不存在返回空字符串和 nil）
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return value, nil
}

// Delete 删除键
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink keys %v", keys)
	}
	return nil
}

// DeleteByPattern 删除匹配模式的所有键
func (r *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return errorx.Wrapf(err, errorx.CodeCacheError, "redis scan pattern %s", pattern)
		}
		if len(keys) > 0 {
			if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
				return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink keys with pattern %s", pattern)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping 连通性检查
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errorx.Wrap(err, errorx.CodeCacheError, "redis ping")
	}
	return nil
}

// SubmitTask 提交异步缓存任务
func (r *RedisCache) SubmitTask(action func()) {
	select {
	case r.taskChan <- action:
	default:
		// 降级：同步执行
		zap.L().Warn("Redis cache task channel full, executing synchronously")
		r.runTask(action)
	}
}

// Close 等待已提交的任务执行完毕后关闭客户端
func (r *RedisCache) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.taskChan)
		r.wg.Wait()
		err = r.client.Close()
	})
	return err
}

// 确保 RedisCache 实现了 AsyncCacheService 接口
var _ AsyncCacheService = (*RedisCache)(nil)
