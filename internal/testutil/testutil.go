// Package testutil 包级测试共用的 sqlite 与 miniredis 夹具
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"support_chat_server/internal/config"
	dao "support_chat_server/internal/dao/mysql"
	"support_chat_server/internal/dao/mysql/repository"
	myredis "support_chat_server/internal/dao/redis"
	"support_chat_server/internal/model"
	"support_chat_server/pkg/util/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Secret 测试用 JWT 密钥
const Secret = "test-secret-0123456789abcdef0123"

// NewRepos 在临时目录创建 sqlite 数据库并完成迁移
func NewRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := dao.Open(config.MysqlConfig{
		Driver: "sqlite",
		Dsn:    filepath.Join(t.TempDir(), "support_chat.db") + "?_pragma=busy_timeout(5000)",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}

// SeedAgents 写入一批容量相同且可接单的坐席
func SeedAgents(t *testing.T, repos *repository.Repositories, capacity int, ids ...string) {
	t.Helper()
	for _, id := range ids {
		agent := &model.Agent{AgentId: id, Name: id, Capacity: capacity, Available: true}
		if err := repos.Agent.Upsert(agent); err != nil {
			t.Fatalf("seed agent %s: %v", id, err)
		}
		if _, err := repos.Agent.SetAvailable(id, true); err != nil {
			t.Fatalf("set agent %s available: %v", id, err)
		}
	}
}

// NewCache 启动 miniredis 并返回基于它的 RedisCache
func NewCache(t *testing.T) (*myredis.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := myredis.NewRedisCache(client, 2, 16)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

var jwtOnce sync.Once

// Token 签发测试用 Access Token
func Token(t *testing.T, userID, role string) string {
	t.Helper()
	jwtOnce.Do(func() { jwt.Init(Secret, 15) })
	token, err := jwt.GenerateAccessToken(userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// Eventually 在 timeout 内轮询 cond 直到返回 true
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
