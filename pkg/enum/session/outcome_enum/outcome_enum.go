// Package outcome_enum 会话结果分类
package outcome_enum

const (
	Pending   = "pending"
	Resolved  = "resolved"
	Escalated = "escalated"
)

// All 全部结果取值，顺序固定
var All = []string{Pending, Resolved, Escalated}

// Valid 判断是否为合法结果
func Valid(outcome string) bool {
	switch outcome {
	case Pending, Resolved, Escalated:
		return true
	}
	return false
}
