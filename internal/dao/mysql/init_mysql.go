// Package mysql 提供数据访问层的初始化
// 负责建立数据库连接、自动迁移表结构、初始化 Repository 层
// 生产使用 MySQL 或 PostgreSQL，本地与测试可使用 sqlite 文件
package mysql

import (
	"fmt"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/model"

	"github.com/glebarez/sqlite"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Init 按全局配置打开数据库并返回 Repository 层实例
func Init() (*repository.Repositories, error) {
	db, err := Open(config.GetConfig().MysqlConfig)
	if err != nil {
		return nil, err
	}
	return repository.NewRepositories(db), nil
}

// Open 打开数据库连接并执行 AutoMigrate
func Open(cfg config.MysqlConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// 唯一键冲突翻译为 gorm.ErrDuplicatedKey，会话唯一性依赖它
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// sqlite 没有行锁，单连接让事务串行执行
		sqlDB.SetMaxOpenConns(1)
	} else {
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 50
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen / 5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	// 如果表不存在则创建，不会删除已有字段或数据
	err = db.AutoMigrate(
		&model.Session{},          // 会话表
		&model.Message{},          // 消息表
		&model.Agent{},            // 坐席名册
		&model.FoldedSession{},    // 已聚合会话登记
		&model.AnalyticsSummary{}, // 统计汇总
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

// dialectorFor 根据 driver 构建 GORM 方言
func dialectorFor(cfg config.MysqlConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := cfg.Dsn
		if dsn == "" {
			// 格式：user:password@tcp(host:port)/database?params
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DatabaseName)
		}
		return mysqldriver.Open(dsn), nil
	case "postgres":
		dsn := cfg.Dsn
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DatabaseName)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := cfg.Dsn
		if dsn == "" {
			dsn = cfg.DatabaseName + ".db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
