package assignment

import (
	"fmt"
	"sort"
	"sync"

	"support_chat_server/pkg/util/hash"
)

// 策略名称，对应配置 assignmentConfig.strategy
const (
	LeastLoaded = "least_loaded"
	RoundRobin  = "round_robin"
	FixedPool   = "fixed_pool"
)

// Candidate 一个接单中的坐席及其当前负载
type Candidate struct {
	AgentId  string
	Load     int
	Capacity int
}

// HasRoom 是否还能再接一个会话
func (c Candidate) HasRoom() bool {
	return c.Load < c.Capacity
}

// Strategy 在接单坐席中挑一个有空余容量的
// candidates 按 AgentId 升序，返回 false 表示无人可分配
type Strategy interface {
	Name() string
	Pick(customerId string, candidates []Candidate) (string, bool)
	// Commit 在绑定随事务提交后调用，回滚的挑选不会通知
	Commit(agentId string)
}

// NewStrategy 按名称创建策略
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "", LeastLoaded:
		return leastLoaded{}, nil
	case RoundRobin:
		return &roundRobin{}, nil
	case FixedPool:
		return fixedPool{}, nil
	}
	return nil, fmt.Errorf("unknown assignment strategy %q", name)
}

// leastLoaded 负载最低者优先，负载相同时按客户哈希在并列者中选择
type leastLoaded struct{}

func (leastLoaded) Name() string { return LeastLoaded }

func (leastLoaded) Commit(string) {}

func (leastLoaded) Pick(customerId string, candidates []Candidate) (string, bool) {
	sorted := withRoom(candidates)
	if len(sorted) == 0 {
		return "", false
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Load < sorted[j].Load
	})
	tied := 1
	for tied < len(sorted) && sorted[tied].Load == sorted[0].Load {
		tied++
	}
	idx := int(hash.StringToUint64(customerId) % uint64(tied))
	return sorted[idx].AgentId, true
}

// roundRobin 按 AgentId 顺序轮转，游标只在本进程内有效
// 游标在 Commit 时才前移，回滚的挑选不占用轮次
type roundRobin struct {
	mu   sync.Mutex
	last string
}

func (*roundRobin) Name() string { return RoundRobin }

func (r *roundRobin) Pick(_ string, candidates []Candidate) (string, bool) {
	candidates = withRoom(candidates)
	if len(candidates) == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// 取第一个排在上次分配之后的坐席，没有则回到开头
	for _, c := range candidates {
		if c.AgentId > r.last {
			return c.AgentId, true
		}
	}
	return candidates[0].AgentId, true
}

func (r *roundRobin) Commit(agentId string) {
	r.mu.Lock()
	r.last = agentId
	r.mu.Unlock()
}

// fixedPool 客户按哈希固定映射到名册中的一个坐席
// 该坐席满载时沿名册顺序向后探测
type fixedPool struct{}

func (fixedPool) Name() string { return FixedPool }

func (fixedPool) Commit(string) {}

func (fixedPool) Pick(customerId string, candidates []Candidate) (string, bool) {
	n := len(candidates)
	if n == 0 {
		return "", false
	}
	start := int(hash.StringToUint64(customerId) % uint64(n))
	for i := 0; i < n; i++ {
		c := candidates[(start+i)%n]
		if c.HasRoom() {
			return c.AgentId, true
		}
	}
	return "", false
}

func withRoom(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasRoom() {
			out = append(out, c)
		}
	}
	return out
}
