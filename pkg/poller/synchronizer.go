package poller

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultInterval    = 3 * time.Second
	defaultRetryWindow = 30 * time.Second
)

// Synchronizer 单个会话的本地副本
// 只追加 id 大于 lastId 的消息，重复拉取同一区间不会产生重复
type Synchronizer struct {
	transport   Transport
	sessionId   string
	retryWindow time.Duration
	fixed       bool

	mu       sync.Mutex
	messages []Message
	lastId   int64
	state    string
	interval time.Duration
}

// Option 同步器选项
type Option func(*Synchronizer)

// WithInterval 覆盖服务端建议的轮询间隔
func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.interval = d
			s.fixed = true
		}
	}
}

// WithRetryWindow 单次轮询遇到网络错误时的最长重试时间
func WithRetryWindow(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.retryWindow = d
	}
}

// New 创建会话同步器
func New(transport Transport, sessionId string, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		transport:   transport,
		sessionId:   sessionId,
		retryWindow: defaultRetryWindow,
		interval:    defaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionId 会话 ID
func (s *Synchronizer) SessionId() string { return s.sessionId }

// Messages 本地消息副本，按 id 升序
func (s *Synchronizer) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastId 已知的最大消息 id
func (s *Synchronizer) LastId() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastId
}

// State 最近一次拉取看到的会话状态
func (s *Synchronizer) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interval 当前轮询间隔
func (s *Synchronizer) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Enter 进入会话：丢弃本地副本并拉取完整历史
func (s *Synchronizer) Enter(ctx context.Context) ([]Message, error) {
	msgs, state, interval, err := s.fetchAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.lastId = 0
	s.observe(state, interval)
	return s.merge(msgs), nil
}

// Poll 拉取 lastId 之后的消息并合并，返回新增的消息
// 首次看到会话结束时重新拉取完整历史，用于展示最终记录
func (s *Synchronizer) Poll(ctx context.Context) ([]Message, error) {
	s.mu.Lock()
	since := s.lastId
	wasEnded := s.state == StateEnded
	s.mu.Unlock()

	msgs, state, interval, err := s.fetchAll(ctx, since)
	if err != nil {
		return nil, err
	}
	if state == StateEnded && !wasEnded {
		full, _, _, err := s.fetchAll(ctx, 0)
		if err != nil {
			return nil, err
		}
		msgs = full
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe(state, interval)
	return s.merge(msgs), nil
}

// Send 发送消息后立即拉取一次，对方要到其下一次轮询才能看到
func (s *Synchronizer) Send(ctx context.Context, req SendRequest) (*Message, error) {
	req.SessionId = s.sessionId
	msg, err := s.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.Poll(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}

// End 结束会话，重复结束不报错
func (s *Synchronizer) End(ctx context.Context) (*EndResult, error) {
	res, err := s.transport.End(ctx, s.sessionId)
	if err != nil {
		return nil, err
	}
	if _, err := s.Poll(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Run 按间隔轮询直到会话结束或 ctx 取消
// 网络错误按指数退避重试，业务错误直接返回
func (s *Synchronizer) Run(ctx context.Context, onNew func([]Message)) error {
	timer := time.NewTimer(s.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		fresh, err := s.pollWithRetry(ctx)
		if err != nil {
			return err
		}
		if len(fresh) > 0 && onNew != nil {
			onNew(fresh)
		}
		if s.State() == StateEnded {
			return nil
		}
		timer.Reset(s.Interval())
	}
}

func (s *Synchronizer) pollWithRetry(ctx context.Context) ([]Message, error) {
	var fresh []Message
	op := func() error {
		msgs, err := s.Poll(ctx)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		fresh = msgs
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = s.retryWindow
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return fresh, nil
}

// fetchAll 按 has_more 连续拉取，直到追上服务端
func (s *Synchronizer) fetchAll(ctx context.Context, since int64) ([]Message, string, int, error) {
	var (
		all      []Message
		state    string
		interval int
	)
	for {
		batch, err := s.transport.Fetch(ctx, s.sessionId, since)
		if err != nil {
			return nil, "", 0, err
		}
		all = append(all, batch.Messages...)
		state = batch.State
		interval = batch.PollIntervalMs
		if !batch.HasMore || batch.LastId <= since {
			break
		}
		since = batch.LastId
	}
	return all, state, interval, nil
}

// observe 调用方需持有 mu
func (s *Synchronizer) observe(state string, intervalMs int) {
	if state != "" {
		s.state = state
	}
	if intervalMs > 0 && !s.fixed {
		s.interval = time.Duration(intervalMs) * time.Millisecond
	}
}

// merge 调用方需持有 mu，返回实际追加的消息
func (s *Synchronizer) merge(msgs []Message) []Message {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].MessageId < msgs[j].MessageId })
	var fresh []Message
	for _, m := range msgs {
		if m.MessageId <= s.lastId {
			continue
		}
		s.messages = append(s.messages, m)
		s.lastId = m.MessageId
		fresh = append(fresh, m)
	}
	return fresh
}
