// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName     string `toml:"appName"`     // 应用名称，用于日志标识等
	Host        string `toml:"host"`        // 服务器监听地址，如 "0.0.0.0"
	Port        int    `toml:"port"`        // 服务器监听端口，如 8000
	Mode        string `toml:"mode"`        // 运行模式：dev 或 release
	TlsRedirect bool   `toml:"tlsRedirect"` // 是否由本服务做 HTTPS 重定向
}

// MysqlConfig 数据库连接配置
// Driver 支持 mysql、postgres、sqlite，sqlite 时 Dsn 为数据库文件路径
type MysqlConfig struct {
	Driver       string `toml:"driver"`       // 数据库类型，默认 mysql
	Host         string `toml:"host"`         // 数据库服务器地址
	Port         int    `toml:"port"`         // 端口
	User         string `toml:"user"`         // 数据库用户名
	Password     string `toml:"password"`     // 数据库密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
	Dsn          string `toml:"dsn"`          // 显式 DSN，优先级高于上面的拼接字段
	MaxOpenConns int    `toml:"maxOpenConns"` // 最大连接数
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host       string `toml:"host"`       // Redis 服务器地址
	Port       int    `toml:"port"`       // Redis 端口，默认 6379
	Password   string `toml:"password"`   // Redis 密码，无密码留空
	Db         int    `toml:"db"`         // Redis 数据库编号，默认 0
	WorkerNum  int    `toml:"workerNum"`  // 异步缓存任务协程数
	BufferSize int    `toml:"bufferSize"` // 异步缓存任务队列长度
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig 会话事件总线配置
type KafkaConfig struct {
	MessageMode  string        `toml:"messageMode"`  // 事件模式："channel" 或 "kafka"
	HostPort     string        `toml:"hostPort"`     // Kafka 服务器地址，如 "localhost:9092"
	SessionTopic string        `toml:"sessionTopic"` // 会话结束事件主题
	GroupID      string        `toml:"groupId"`      // 消费者组
	Partition    int           `toml:"partition"`    // 分区数（创建主题时使用）
	Timeout      time.Duration `toml:"timeout"`      // 超时时间（秒）
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // 与身份服务共享的签名密钥
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 节点 ID，范围 0-1023，分布式部署时每台机器需唯一
}

// AgentSeed 启动时写入坐席名册的坐席
type AgentSeed struct {
	AgentID  string `toml:"agentId"`
	Name     string `toml:"name"`
	Capacity int    `toml:"capacity"`
}

// AssignmentConfig 分配策略配置
type AssignmentConfig struct {
	Strategy          string      `toml:"strategy"`          // least_loaded / round_robin / fixed_pool
	DefaultCapacity   int         `toml:"defaultCapacity"`   // 坐席默认并发会话上限
	Overflow          string      `toml:"overflow"`          // 无可用坐席时：reject 或 queue
	QueueSweepSeconds int         `toml:"queueSweepSeconds"` // 排队会话的兜底扫描间隔
	Agents            []AgentSeed `toml:"agents"`            // 坐席名册
}

// PollingConfig 轮询协议参数
type PollingConfig struct {
	IntervalMs int `toml:"intervalMs"` // 建议客户端的轮询间隔
	MaxBatch   int `toml:"maxBatch"`   // 单次拉取的最大消息数
}

// AnalyticsConfig 统计聚合配置
type AnalyticsConfig struct {
	CacheTtlSeconds     int `toml:"cacheTtlSeconds"`     // 汇总缓存有效期
	CardCacheTtlSeconds int `toml:"cardCacheTtlSeconds"` // 会话卡片缓存有效期
	ReconcileSeconds    int `toml:"reconcileSeconds"`    // 补偿聚合间隔
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig       `toml:"mainConfig"`       // 主配置
	MysqlConfig      `toml:"mysqlConfig"`      // 数据库配置
	RedisConfig      `toml:"redisConfig"`      // Redis 配置
	LogConfig        `toml:"logConfig"`        // 日志配置
	KafkaConfig      `toml:"kafkaConfig"`      // Kafka 配置
	JWTConfig        `toml:"jwtConfig"`        // JWT 配置
	SnowflakeConfig  `toml:"snowflakeConfig"`  // 雪花算法配置
	AssignmentConfig `toml:"assignmentConfig"` // 分配策略配置
	PollingConfig    `toml:"pollingConfig"`    // 轮询配置
	AnalyticsConfig  `toml:"analyticsConfig"`  // 统计配置
}

// config 全局配置单例，延迟加载
var config *Config

// defaultConfig 未提供配置文件时使用的默认值
func defaultConfig() *Config {
	return &Config{
		MainConfig:  MainConfig{AppName: "support_chat_server", Host: "0.0.0.0", Port: 8000, Mode: "dev"},
		MysqlConfig: MysqlConfig{Driver: "mysql", Host: "127.0.0.1", Port: 3306, DatabaseName: "support_chat", MaxOpenConns: 50},
		RedisConfig: RedisConfig{Host: "127.0.0.1", Port: 6379, WorkerNum: 8, BufferSize: 1000},
		LogConfig:   LogConfig{LogPath: "logs", Level: "info"},
		KafkaConfig: KafkaConfig{MessageMode: "channel", SessionTopic: "session_closed", GroupID: "analytics", Partition: 1, Timeout: 1},
		JWTConfig:   JWTConfig{AccessTokenExpiry: 60},
		AssignmentConfig: AssignmentConfig{
			Strategy:          "least_loaded",
			DefaultCapacity:   3,
			Overflow:          "reject",
			QueueSweepSeconds: 5,
		},
		PollingConfig:   PollingConfig{IntervalMs: 3000, MaxBatch: 500},
		AnalyticsConfig: AnalyticsConfig{CacheTtlSeconds: 60, CardCacheTtlSeconds: 600, ReconcileSeconds: 30},
	}
}

// LoadConfig 从多个候选路径加载配置文件
// 环境变量 SUPPORT_CHAT_CONFIG 指定的路径优先
// 返回值：加载成功返回 nil，否则返回错误
func LoadConfig() error {
	paths := []string{
		"configs/config_local.toml",       // 本地开发配置（优先）
		"configs/config.toml",             // 默认配置
		"../../configs/config_local.toml", // 从子目录运行时的路径
		"../../configs/config.toml",       // 从子目录运行时的路径
	}
	if p := os.Getenv("SUPPORT_CHAT_CONFIG"); p != "" {
		paths = append([]string{p}, paths...)
	}

	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil // 加载成功
		}
	}

	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件，找不到文件时使用默认值
func GetConfig() *Config {
	if config == nil {
		config = defaultConfig()
		_ = LoadConfig() // 忽略加载错误，使用默认值
	}
	return config
}

// PollInterval 客户端轮询间隔
func (c *Config) PollInterval() time.Duration {
	if c.PollingConfig.IntervalMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.PollingConfig.IntervalMs) * time.Millisecond
}
