package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support_chat_server/internal/config"
	dao "support_chat_server/internal/dao/mysql"
	myredis "support_chat_server/internal/dao/redis"
	"support_chat_server/internal/gateway/websocket"
	"support_chat_server/internal/handler"
	"support_chat_server/internal/https_server"
	"support_chat_server/internal/infrastructure/logger"
	"support_chat_server/internal/service"
	"support_chat_server/internal/service/analytics"
	"support_chat_server/pkg/util/jwt"
	"support_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer zap.L().Sync()
	zap.L().Info("日志初始化成功")

	// 3. 初始化数据库
	repos, err := dao.Init()
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	zap.L().Info("数据库初始化成功", zap.String("driver", conf.MysqlConfig.Driver))

	// 4. 初始化 Redis，不可用时统计接口直接读库
	var cache myredis.AsyncCacheService
	redisCache, err := myredis.Init(conf.RedisConfig)
	if err != nil {
		zap.L().Warn("Redis 不可用，统计缓存关闭", zap.Error(err))
	} else {
		cache = redisCache
		zap.L().Info("Redis 初始化成功")
	}

	// 5. 初始化 JWT 与雪花算法
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	if err := snowflake.Init(conf.SnowflakeConfig.MachineID); err != nil {
		zap.L().Fatal("雪花算法节点初始化失败", zap.Error(err))
	}

	// 6. 事件总线与观察连接
	broker := analytics.NewBroker(conf.KafkaConfig)
	hub := websocket.NewHub()
	go hub.Start()

	// 7. 初始化 Service 层 (依赖注入)
	svc, err := service.NewServices(service.Deps{
		Repos:     repos,
		Cache:     cache,
		Publisher: broker,
		Notifier:  hub,
		Config:    conf,
	})
	if err != nil {
		zap.L().Fatal("Service 层初始化失败", zap.Error(err))
	}
	if err := svc.Assigner.SeedRoster(context.Background()); err != nil {
		zap.L().Fatal("写入坐席名册失败", zap.Error(err))
	}
	zap.L().Info("Service 层初始化成功", zap.String("strategy", svc.Agent.StrategyName()))

	// 8. 后台任务：事件消费、排队扫描、补偿聚合
	ctx, cancel := context.WithCancel(context.Background())
	broker.Start(ctx, svc.Analytics.HandleClosedEvent)
	go svc.Session.RunQueueSweeper(ctx, time.Duration(conf.AssignmentConfig.QueueSweepSeconds)*time.Second)
	go svc.Analytics.RunReconciler(ctx, time.Duration(conf.AnalyticsConfig.ReconcileSeconds)*time.Second)

	// 9. 初始化 HTTP 服务器
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("初始化参数校验翻译器失败", zap.Error(err))
	}
	pingers := map[string]handler.Pinger{"db": repos}
	if cache != nil {
		pingers["redis"] = cache
	}
	handlers := handler.NewHandlers(svc, hub, handler.NewHealthHandler(pingers))
	engine := https_server.Init(conf.MainConfig, handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 设置信号监听
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("关闭服务器...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP 服务关闭失败", zap.Error(err))
	}

	// 先停后台任务，再关闭它们使用的连接
	cancel()
	broker.Close()
	hub.Close()
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			zap.L().Warn("关闭 Redis 失败", zap.Error(err))
		}
	}

	zap.L().Info("服务器已关闭")
}
