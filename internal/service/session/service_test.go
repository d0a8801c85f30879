package session_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/service"
	"support_chat_server/internal/service/access"
	"support_chat_server/internal/service/assignment"
	"support_chat_server/internal/service/session"
	"support_chat_server/internal/testutil"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/enum/session/outcome_enum"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"
)

// recorder 记录提示与结束事件
type recorder struct {
	mu     sync.Mutex
	hints  []string
	closed []string
}

func (r *recorder) Notify(sessionId, event string, lastId int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hints = append(r.hints, event+":"+sessionId)
}

func (r *recorder) PublishClosed(ctx context.Context, sessionId, agentId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, sessionId)
	return nil
}

func (r *recorder) closedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closed)
}

type env struct {
	repos *repository.Repositories
	svc   service.SessionService
	rec   *recorder
}

func newEnv(t *testing.T, overflow string, capacity int, agents ...string) *env {
	t.Helper()
	repos := testutil.NewRepos(t)
	testutil.SeedAgents(t, repos, capacity, agents...)
	cfg := config.AssignmentConfig{Strategy: assignment.LeastLoaded, DefaultCapacity: capacity, Overflow: overflow}
	assigner, err := assignment.NewAssignmentService(repos, cfg)
	if err != nil {
		t.Fatalf("NewAssignmentService: %v", err)
	}
	rec := &recorder{}
	return &env{
		repos: repos,
		svc:   session.NewSessionService(repos, assigner, cfg, rec, rec),
		rec:   rec,
	}
}

func customer(id string) access.Caller { return access.Caller{UserID: id, Role: role_enum.Customer} }
func agent(id string) access.Caller    { return access.Caller{UserID: id, Role: role_enum.Agent} }

var admin = access.Caller{UserID: "root", Role: role_enum.Admin}

func TestStartSessionAssignsAgent(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 3, "A1")
	ctx := context.Background()

	s, err := e.svc.StartSession(ctx, customer("C1"))
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if s.State != session_state_enum.Active || s.AgentId != "A1" || s.CustomerId != "C1" {
		t.Fatalf("unexpected session %+v", s)
	}
	if s.Outcome != outcome_enum.Pending || s.BoundAt == nil {
		t.Fatalf("outcome=%s bound_at=%v", s.Outcome, s.BoundAt)
	}
	if len(s.SessionId) != 20 {
		t.Fatalf("session id %q should be 20 chars", s.SessionId)
	}

	assigned, err := e.svc.ListActiveForAgent(ctx, agent("A1"), "A1")
	if err != nil {
		t.Fatalf("ListActiveForAgent: %v", err)
	}
	if assigned.Count != 1 || assigned.Sessions[0].SessionId != s.SessionId {
		t.Fatalf("assigned=%+v", assigned)
	}
	if _, err := e.svc.ListActiveForAgent(ctx, agent("A2"), "A1"); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("other agent should be forbidden, err=%v", err)
	}
}

func TestStartSessionRequiresCustomer(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 3, "A1")
	if _, err := e.svc.StartSession(context.Background(), agent("A1")); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("err=%v want Forbidden", err)
	}
}

func TestStartSessionAlreadyActive(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 3, "A1")
	ctx := context.Background()

	first, err := e.svc.StartSession(ctx, customer("C1"))
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := e.svc.StartSession(ctx, customer("C1")); !errorx.HasCode(err, errorx.CodeAlreadyActive) {
		t.Fatalf("err=%v want AlreadyActive", err)
	}

	if _, err := e.svc.EndSession(ctx, customer("C1"), first.SessionId); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	second, err := e.svc.StartSession(ctx, customer("C1"))
	if err != nil {
		t.Fatalf("StartSession after end: %v", err)
	}
	if second.SessionId == first.SessionId {
		t.Fatalf("expected a new session id")
	}
}

func TestStartSessionRejectWhenFull(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 1, "A1")
	ctx := context.Background()

	if _, err := e.svc.StartSession(ctx, customer("C1")); err != nil {
		t.Fatalf("StartSession C1: %v", err)
	}
	if _, err := e.svc.StartSession(ctx, customer("C2")); !errorx.HasCode(err, errorx.CodeNoAgentAvailable) {
		t.Fatalf("err=%v want NoAgentAvailable", err)
	}
	// 被拒绝的请求整体回滚，客户可以稍后重试
	if _, err := e.repos.Session.FindLiveByCustomer("C2"); !errorx.IsNotFound(err) {
		t.Fatalf("rejected customer should have no live session, err=%v", err)
	}
}

func TestConcurrentStartRespectsCapacity(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 1, "A1")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
		rejected  int
	)
	for _, id := range []string{"C1", "C2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := e.svc.StartSession(ctx, customer(id))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded = append(succeeded, id)
			case errorx.HasCode(err, errorx.CodeNoAgentAvailable):
				rejected++
			default:
				t.Errorf("unexpected error for %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if len(succeeded) != 1 || rejected != 1 {
		t.Fatalf("succeeded=%v rejected=%d", succeeded, rejected)
	}
	loads, err := e.repos.Session.CountActiveByAgents([]string{"A1"})
	if err != nil {
		t.Fatalf("CountActiveByAgents: %v", err)
	}
	if loads["A1"] != 1 {
		t.Fatalf("A1 load=%d want 1", loads["A1"])
	}
}

func TestAtMostOneLiveSessionPerCustomer(t *testing.T) {
	e := newEnv(t, session.OverflowQueue, 2, "A1", "A2")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	customers := []string{"C1", "C2", "C3"}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		id := customers[rng.Intn(len(customers))]
		end := rng.Intn(3) == 0
		wg.Add(1)
		go func(id string, end bool) {
			defer wg.Done()
			s, err := e.svc.StartSession(ctx, customer(id))
			if err != nil {
				if !errorx.HasCode(err, errorx.CodeAlreadyActive) {
					t.Errorf("StartSession %s: %v", id, err)
				}
				return
			}
			if end {
				if _, err := e.svc.EndSession(ctx, customer(id), s.SessionId); err != nil {
					t.Errorf("EndSession %s: %v", id, err)
				}
			}
		}(id, end)
	}
	wg.Wait()

	pending, err := e.repos.Session.ListPending(0)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	for _, id := range customers {
		live := 0
		for _, s := range pending {
			if s.CustomerId == id {
				live++
			}
		}
		for _, a := range []string{"A1", "A2"} {
			active, err := e.repos.Session.ListActiveByAgent(a)
			if err != nil {
				t.Fatalf("ListActiveByAgent: %v", err)
			}
			for _, s := range active {
				if s.CustomerId == id {
					live++
				}
			}
		}
		if live > 1 {
			t.Fatalf("customer %s has %d live sessions", id, live)
		}
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 3, "A1")
	ctx := context.Background()
	s, err := e.svc.StartSession(ctx, customer("C1"))
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// 双方同时结束
	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, caller := range []access.Caller{customer("C1"), agent("A1")} {
		wg.Add(1)
		go func(i int, caller access.Caller) {
			defer wg.Done()
			rsp, err := e.svc.EndSession(ctx, caller, s.SessionId)
			if err != nil {
				t.Errorf("EndSession: %v", err)
				return
			}
			if rsp.State != session_state_enum.Ended || rsp.EndedAt == nil {
				t.Errorf("unexpected end result %+v", rsp)
			}
			results[i] = rsp.Changed
		}(i, caller)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("exactly one end call should change state, got %v", results)
	}
	if n := e.rec.closedCount(); n != 1 {
		t.Fatalf("closed events=%d want 1", n)
	}

	rsp, err := e.svc.EndSession(ctx, admin, s.SessionId)
	if err != nil || rsp.Changed {
		t.Fatalf("third end: rsp=%+v err=%v", rsp, err)
	}
}

func TestEndSessionErrors(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 3, "A1")
	ctx := context.Background()
	s, _ := e.svc.StartSession(ctx, customer("C1"))

	if _, err := e.svc.EndSession(ctx, customer("C2"), s.SessionId); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("err=%v want Forbidden", err)
	}
	if _, err := e.svc.EndSession(ctx, customer("C1"), "S0000000000000000000"); !errorx.IsNotFound(err) {
		t.Fatalf("err=%v want NotFound", err)
	}
}

func TestSetOutcome(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 3, "A1")
	ctx := context.Background()
	s, _ := e.svc.StartSession(ctx, customer("C1"))

	if _, err := e.svc.SetOutcome(ctx, customer("C1"), s.SessionId, outcome_enum.Resolved); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("customer must not set outcome, err=%v", err)
	}
	if _, err := e.svc.SetOutcome(ctx, agent("A1"), s.SessionId, "unknown"); !errorx.HasCode(err, errorx.CodeInvalidParam) {
		t.Fatalf("err=%v want InvalidParam", err)
	}

	rsp, err := e.svc.SetOutcome(ctx, agent("A1"), s.SessionId, outcome_enum.Escalated)
	if err != nil || !rsp.Applied {
		t.Fatalf("SetOutcome: rsp=%+v err=%v", rsp, err)
	}
	classifier := access.Caller{UserID: "nlp", Role: role_enum.Classifier}
	if rsp, err = e.svc.SetOutcome(ctx, classifier, s.SessionId, outcome_enum.Resolved); err != nil || !rsp.Applied {
		t.Fatalf("classifier SetOutcome: rsp=%+v err=%v", rsp, err)
	}

	if _, err := e.svc.EndSession(ctx, customer("C1"), s.SessionId); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	// 结束后结果冻结
	rsp, err = e.svc.SetOutcome(ctx, agent("A1"), s.SessionId, outcome_enum.Escalated)
	if err != nil {
		t.Fatalf("SetOutcome after end: %v", err)
	}
	if rsp.Applied || rsp.Outcome != outcome_enum.Resolved {
		t.Fatalf("outcome should stay frozen, got %+v", rsp)
	}
}

func TestQueueModeFIFO(t *testing.T) {
	e := newEnv(t, session.OverflowQueue, 1, "A1")
	ctx := context.Background()

	s1, err := e.svc.StartSession(ctx, customer("C1"))
	if err != nil || s1.State != session_state_enum.Active {
		t.Fatalf("C1: %+v %v", s1, err)
	}
	s2, err := e.svc.StartSession(ctx, customer("C2"))
	if err != nil {
		t.Fatalf("C2: %v", err)
	}
	s3, err := e.svc.StartSession(ctx, customer("C3"))
	if err != nil {
		t.Fatalf("C3: %v", err)
	}
	if s2.State != session_state_enum.Pending || s2.QueuePosition == nil || *s2.QueuePosition != 0 {
		t.Fatalf("C2 should head the queue: %+v", s2)
	}
	if s3.QueuePosition == nil || *s3.QueuePosition != 1 {
		t.Fatalf("C3 should be second: %+v", s3)
	}

	// 坐席空出后按排队顺序分配
	if _, err := e.svc.EndSession(ctx, agent("A1"), s1.SessionId); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	got2, err := e.svc.GetSession(ctx, customer("C2"), s2.SessionId)
	if err != nil {
		t.Fatalf("GetSession C2: %v", err)
	}
	if got2.State != session_state_enum.Active || got2.AgentId != "A1" {
		t.Fatalf("C2 should be bound now: %+v", got2)
	}
	got3, _ := e.svc.GetSession(ctx, customer("C3"), s3.SessionId)
	if got3.State != session_state_enum.Pending || *got3.QueuePosition != 0 {
		t.Fatalf("C3 should now head the queue: %+v", got3)
	}

	// pending 会话上的结果更新
	if _, err := e.svc.SetOutcome(ctx, admin, s3.SessionId, outcome_enum.Resolved); !errorx.HasCode(err, errorx.CodeSessionNotActive) {
		t.Fatalf("err=%v want SessionNotActive", err)
	}
	// 客户可以取消排队
	rsp, err := e.svc.EndSession(ctx, customer("C3"), s3.SessionId)
	if err != nil || !rsp.Changed {
		t.Fatalf("cancel queued session: %+v %v", rsp, err)
	}
	if n := e.svc.DrainQueue(ctx); n != 0 {
		t.Fatalf("queue should be empty, bound %d", n)
	}
}

func TestBindAgentByAdmin(t *testing.T) {
	e := newEnv(t, session.OverflowQueue, 1, "A1", "A2")
	ctx := context.Background()
	for _, id := range []string{"A1", "A2"} {
		if _, err := e.repos.Agent.SetAvailable(id, false); err != nil {
			t.Fatalf("disable agent %s: %v", id, err)
		}
	}

	s, err := e.svc.StartSession(ctx, customer("C1"))
	if err != nil || s.State != session_state_enum.Pending {
		t.Fatalf("StartSession: %+v %v", s, err)
	}
	if _, err := e.svc.BindAgent(ctx, agent("A2"), s.SessionId, "A2"); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("err=%v want Forbidden", err)
	}
	bound, err := e.svc.BindAgent(ctx, admin, s.SessionId, "A2")
	if err != nil {
		t.Fatalf("BindAgent: %v", err)
	}
	if bound.State != session_state_enum.Active || bound.AgentId != "A2" {
		t.Fatalf("bound=%+v", bound)
	}
	if _, err := e.svc.BindAgent(ctx, admin, s.SessionId, "A1"); !errorx.HasCode(err, errorx.CodeInvalidState) {
		t.Fatalf("rebinding an active session: err=%v want InvalidState", err)
	}
}

func TestEndNotifiesWatchers(t *testing.T) {
	e := newEnv(t, session.OverflowReject, 1, "A1")
	ctx := context.Background()
	s, _ := e.svc.StartSession(ctx, customer("C1"))
	if _, err := e.svc.EndSession(ctx, customer("C1"), s.SessionId); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	want := fmt.Sprintf("%s:%s", constants.HINT_EVENT_ENDED, s.SessionId)
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	if len(e.rec.hints) != 1 || e.rec.hints[0] != want {
		t.Fatalf("hints=%v want [%s]", e.rec.hints, want)
	}
}

func TestRoundRobinAdvancesOnlyOnBind(t *testing.T) {
	repos := testutil.NewRepos(t)
	testutil.SeedAgents(t, repos, 2, "A1", "A2")
	cfg := config.AssignmentConfig{Strategy: assignment.RoundRobin, DefaultCapacity: 2, Overflow: session.OverflowReject}
	assigner, err := assignment.NewAssignmentService(repos, cfg)
	if err != nil {
		t.Fatalf("NewAssignmentService: %v", err)
	}
	rec := &recorder{}
	svc := session.NewSessionService(repos, assigner, cfg, rec, rec)
	ctx := context.Background()

	start := func(customerId, want string) {
		t.Helper()
		s, err := svc.StartSession(ctx, customer(customerId))
		if err != nil || s.AgentId != want {
			t.Fatalf("%s: got %+v %v, want agent %s", customerId, s, err, want)
		}
	}
	start("C1", "A1")
	// 重复发起被拒绝，轮次不变
	if _, err := svc.StartSession(ctx, customer("C1")); !errorx.HasCode(err, errorx.CodeAlreadyActive) {
		t.Fatalf("C1 again: %v", err)
	}
	start("C2", "A2")
	start("C3", "A1")
	start("C4", "A2")
	if _, err := svc.StartSession(ctx, customer("C5")); !errorx.HasCode(err, errorx.CodeNoAgentAvailable) {
		t.Fatalf("C5: %v", err)
	}
}
