package constants

const (
	CHANNEL_SIZE          = 100  // 事件通道大小
	SESSION_ID_RANDOM_LEN = 13   // 会话 ID 随机部分长度，加上 "S" 与日期前缀共 20 位
	DEFAULT_POLL_INTERVAL = 3000 // 客户端轮询间隔（毫秒）
	MAX_MESSAGE_BATCH     = 500  // 单次拉取消息上限
	MAX_TEXT_LENGTH       = 4000 // 单条消息文本上限（字符）
	RECONCILE_BATCH       = 100  // 每轮补偿聚合的会话数量
)

// 缓存 key 前缀
const (
	CACHE_AGENT_SUMMARY = "analytics_summary_agent_"
	CACHE_FLEET_SUMMARY = "analytics_summary_fleet"
	CACHE_SESSION_CARD  = "session_card_"
)

// 观察连接提示事件
const (
	HINT_EVENT_MESSAGE = "message"
	HINT_EVENT_ENDED   = "ended"
)
