//go:build integration
// +build integration

package https_server_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/gin-gonic/gin"

	"support_chat_server/internal/config"
	dao "support_chat_server/internal/dao/mysql"
	myredis "support_chat_server/internal/dao/redis"
	"support_chat_server/internal/gateway/websocket"
	"support_chat_server/internal/handler"
	"support_chat_server/internal/https_server"
	"support_chat_server/internal/service"
	"support_chat_server/internal/service/access"
	"support_chat_server/internal/service/analytics"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/poller"
	"support_chat_server/pkg/util/jwt"
)

func ensureMySQLDatabaseExists(t *testing.T, conf *config.Config) {
	t.Helper()
	dsnNoDB := fmt.Sprintf("%s:%s@tcp(%s:%d)/?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User,
		conf.MysqlConfig.Password,
		conf.MysqlConfig.Host,
		conf.MysqlConfig.Port,
	)
	db, err := sql.Open("mysql", dsnNoDB)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatalf("mysql ping: %v", err)
	}
	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS " + conf.MysqlConfig.DatabaseName + " DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci")
	if err != nil {
		t.Fatalf("create database %s: %v", conf.MysqlConfig.DatabaseName, err)
	}
}

// 每次运行使用新的 id，避免与库里已有数据冲突
func runSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100_000_000)
}

func TestLocalIntegration_CapacityUnderContention(t *testing.T) {
	// 需要本机 MySQL + Redis 可用（按 configs/config.toml）
	gin.SetMode(gin.TestMode)
	conf := config.GetConfig()
	conf.MysqlConfig.Driver = "mysql"
	ensureMySQLDatabaseExists(t, conf)

	repos, err := dao.Init()
	if err != nil {
		t.Fatalf("dao init: %v", err)
	}
	cache, err := myredis.Init(conf.RedisConfig)
	if err != nil {
		t.Fatalf("redis init: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	if err := handler.InitTrans("zh"); err != nil {
		t.Fatalf("InitTrans: %v", err)
	}

	suffix := runSuffix()
	agentId := "A_IT_" + suffix
	conf.AssignmentConfig.Strategy = "least_loaded"
	conf.AssignmentConfig.Overflow = "reject"
	conf.AssignmentConfig.Agents = nil
	conf.AssignmentConfig.DefaultCapacity = 2
	conf.AnalyticsConfig.CacheTtlSeconds = 1

	hub := websocket.NewHub()
	go hub.Start()
	t.Cleanup(hub.Close)
	broker := analytics.NewChannelBroker(64)
	svc, err := service.NewServices(service.Deps{Repos: repos, Cache: cache, Publisher: broker, Notifier: hub, Config: conf})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	broker.Start(ctx, svc.Analytics.HandleClosedEvent)
	t.Cleanup(func() {
		cancel()
		broker.Close()
	})

	// 新坐席只能接两个会话，其余坐席全部下线
	agents, err := repos.Agent.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	for _, a := range agents {
		if _, err := repos.Agent.SetAvailable(a.AgentId, false); err != nil {
			t.Fatalf("SetAvailable: %v", err)
		}
	}
	if _, err := svc.Agent.SetAgentStatus(ctx, agentId, true); err != nil {
		t.Fatalf("SetAgentStatus: %v", err)
	}

	health := handler.NewHealthHandler(map[string]handler.Pinger{"db": repos, "redis": cache})
	srv := httptest.NewServer(https_server.Init(conf.MainConfig, handler.NewHandlers(svc, hub, health)))
	defer srv.Close()

	const customers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		started  []string
		rejected int
	)
	for i := 0; i < customers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, _ := jwt.GenerateAccessToken(fmt.Sprintf("C_IT_%s_%d", suffix, i), role_enum.Customer)
			s, err := poller.NewHTTPTransport(srv.URL, token, 10*time.Second).Start(ctx)
			mu.Lock()
			defer mu.Unlock()
			var apiErr *poller.APIError
			switch {
			case err == nil:
				started = append(started, s.SessionId)
			case asAPIError(err, &apiErr) && apiErr.Code == errorx.CodeNoAgentAvailable:
				rejected++
			default:
				t.Errorf("start %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	if len(started) != 2 || rejected != customers-2 {
		t.Fatalf("started=%d rejected=%d", len(started), rejected)
	}

	agentToken, _ := jwt.GenerateAccessToken(agentId, role_enum.Agent)
	agent := poller.NewHTTPTransport(srv.URL, agentToken, 10*time.Second)
	for _, sid := range started {
		if _, err := agent.End(ctx, sid); err != nil {
			t.Fatalf("End %s: %v", sid, err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		summary, err := svc.Analytics.GetAgentSummary(ctx, access.Caller{UserID: "root", Role: role_enum.Admin}, agentId)
		if err != nil {
			t.Fatalf("GetAgentSummary: %v", err)
		}
		if summary.Sessions == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("agent summary never reached 2 sessions: %+v", summary)
		}
		time.Sleep(100 * time.Millisecond)
	}

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status=%d", resp.StatusCode)
	}
}
