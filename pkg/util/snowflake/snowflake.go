// Package snowflake 为消息行生成全局唯一 ID
// 会话内的 message_id 是连续序号，这里的 ID 只用于跨库追踪
package snowflake

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init 按机器号创建节点，多实例部署时每个实例的 machineID 必须不同
// 重复调用以最后一次为准
func Init(machineID int64) error {
	n, err := snowflake.NewNode(machineID)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", machineID, err)
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// GenerateID 生成一个 ID，未初始化时使用 0 号节点
func GenerateID() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
