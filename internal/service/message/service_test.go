package message_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/service"
	"support_chat_server/internal/service/access"
	"support_chat_server/internal/service/assignment"
	"support_chat_server/internal/service/message"
	"support_chat_server/internal/service/session"
	"support_chat_server/internal/testutil"
	"support_chat_server/pkg/enum/message/entity_type_enum"
	"support_chat_server/pkg/enum/session/outcome_enum"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"
)

var (
	c1    = access.Caller{UserID: "C1", Role: role_enum.Customer}
	a1    = access.Caller{UserID: "A1", Role: role_enum.Agent}
	a2    = access.Caller{UserID: "A2", Role: role_enum.Agent}
	admin = access.Caller{UserID: "root", Role: role_enum.Admin}
)

func ptr(s string) *string { return &s }

// setup 准备一个已分配给 A1 的 C1 会话
func setup(t *testing.T, polling config.PollingConfig) (*repository.Repositories, service.MessageService, string) {
	t.Helper()
	repos := testutil.NewRepos(t)
	testutil.SeedAgents(t, repos, 3, "A1", "A2")
	cfg := config.AssignmentConfig{Strategy: assignment.LeastLoaded, DefaultCapacity: 3, Overflow: session.OverflowQueue}
	assigner, err := assignment.NewAssignmentService(repos, cfg)
	if err != nil {
		t.Fatalf("NewAssignmentService: %v", err)
	}
	// 只保留 A1 可接单，保证会话落在 A1
	if _, err := repos.Agent.SetAvailable("A2", false); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}
	s, err := session.NewSessionService(repos, assigner, cfg, nil, nil).StartSession(context.Background(), c1)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if s.AgentId != "A1" {
		t.Fatalf("session bound to %q", s.AgentId)
	}
	return repos, message.NewMessageService(repos, polling, nil), s.SessionId
}

func send(t *testing.T, svc service.MessageService, caller access.Caller, sessionId, text string) int64 {
	t.Helper()
	rsp, err := svc.Append(context.Background(), caller, request.SendMessageRequest{SessionId: sessionId, Text: text})
	if err != nil {
		t.Fatalf("Append %q: %v", text, err)
	}
	return rsp.MessageId
}

func TestAppendAssignsSequentialIds(t *testing.T) {
	_, svc, sid := setup(t, config.PollingConfig{})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		caller := c1
		if i%2 == 0 {
			caller = a1
		}
		if id := send(t, svc, caller, sid, fmt.Sprintf("m%d", i)); id != int64(i) {
			t.Fatalf("message %d got id %d", i, id)
		}
	}

	all, err := svc.List(ctx, c1, sid, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all.Messages) != 5 || all.LastId != 5 || all.HasMore {
		t.Fatalf("unexpected list %+v", all)
	}
	if all.Messages[1].SenderRole != "agent" || all.Messages[0].SenderRole != "customer" {
		t.Fatalf("sender roles %s %s", all.Messages[0].SenderRole, all.Messages[1].SenderRole)
	}

	// List(k) 总是全部消息的后缀
	for k := int64(0); k <= 6; k++ {
		part, err := svc.List(ctx, a1, sid, k)
		if err != nil {
			t.Fatalf("List(%d): %v", k, err)
		}
		want := all.Messages
		if k < int64(len(want)) {
			want = want[k:]
		} else {
			want = nil
		}
		if len(part.Messages) != len(want) {
			t.Fatalf("List(%d) returned %d messages want %d", k, len(part.Messages), len(want))
		}
		for i := range want {
			if part.Messages[i].MessageId != want[i].MessageId || part.Messages[i].Text != want[i].Text {
				t.Fatalf("List(%d)[%d]=%+v want %+v", k, i, part.Messages[i], want[i])
			}
		}
		if len(want) == 0 && part.LastId != k {
			t.Fatalf("empty List(%d) should echo since_id, got %d", k, part.LastId)
		}
	}
}

func TestAppendAccessAndState(t *testing.T) {
	repos, svc, sid := setup(t, config.PollingConfig{})
	ctx := context.Background()
	send(t, svc, c1, sid, "hello")

	req := request.SendMessageRequest{SessionId: sid, Text: "hi"}
	if _, err := svc.Append(ctx, a2, req); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("unbound agent: err=%v want Forbidden", err)
	}
	if _, err := svc.Append(ctx, admin, req); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("admin is not a participant: err=%v want Forbidden", err)
	}
	if _, err := svc.List(ctx, a2, sid, 0); !errorx.HasCode(err, errorx.CodeForbidden) {
		t.Fatalf("unbound agent List: err=%v want Forbidden", err)
	}
	if _, err := svc.Append(ctx, c1, request.SendMessageRequest{SessionId: sid, Text: "   "}); !errorx.HasCode(err, errorx.CodeInvalidParam) {
		t.Fatalf("blank text: err=%v want InvalidParam", err)
	}

	if _, err := repos.Session.End(sid, "C1", time.Now()); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := svc.Append(ctx, c1, req); !errorx.HasCode(err, errorx.CodeSessionNotActive) {
		t.Fatalf("ended session: err=%v want SessionNotActive", err)
	}
	// 结束后仍能读到全部消息
	list, err := svc.List(ctx, a1, sid, 0)
	if err != nil {
		t.Fatalf("List after end: %v", err)
	}
	if list.State != session_state_enum.Ended || len(list.Messages) != 1 {
		t.Fatalf("list after end %+v", list)
	}
}

func TestAppendRejectsPendingSession(t *testing.T) {
	repos, svc, _ := setup(t, config.PollingConfig{})
	ctx := context.Background()
	if _, err := repos.Agent.SetAvailable("A1", false); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}
	cfg := config.AssignmentConfig{Strategy: assignment.LeastLoaded, DefaultCapacity: 3, Overflow: session.OverflowQueue}
	assigner, err := assignment.NewAssignmentService(repos, cfg)
	if err != nil {
		t.Fatalf("NewAssignmentService: %v", err)
	}
	c2 := access.Caller{UserID: "C2", Role: role_enum.Customer}
	s, err := session.NewSessionService(repos, assigner, cfg, nil, nil).StartSession(ctx, c2)
	if err != nil || s.State != session_state_enum.Pending {
		t.Fatalf("StartSession: %+v %v", s, err)
	}
	_, err = svc.Append(ctx, c2, request.SendMessageRequest{SessionId: s.SessionId, Text: "anyone?"})
	if !errorx.HasCode(err, errorx.CodeSessionNotActive) {
		t.Fatalf("err=%v want SessionNotActive", err)
	}
}

func TestAppendAnnotations(t *testing.T) {
	repos, svc, sid := setup(t, config.PollingConfig{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  request.SendMessageRequest
	}{
		{"unknown emotion", request.SendMessageRequest{Emotion: ptr("boredom")}},
		{"unknown entity type", request.SendMessageRequest{Entities: map[string]*string{"Shoe Size": ptr("42")}}},
		{"unknown outcome", request.SendMessageRequest{Outcome: ptr("abandoned")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.SessionId = sid
			tt.req.Text = "x"
			if _, err := svc.Append(ctx, c1, tt.req); !errorx.HasCode(err, errorx.CodeInvalidParam) {
				t.Fatalf("err=%v want InvalidParam", err)
			}
		})
	}

	if _, err := svc.Append(ctx, a1, request.SendMessageRequest{SessionId: sid, Text: "x", KbAnswer: ptr("see FAQ")}); !errorx.HasCode(err, errorx.CodeInvalidParam) {
		t.Fatalf("kb_answer on agent message: err=%v want InvalidParam", err)
	}

	rsp, err := svc.Append(ctx, c1, request.SendMessageRequest{
		SessionId: sid,
		Text:      "where is my refund for order 123",
		Emotion:   ptr("anger"),
		Entities: map[string]*string{
			"order_number": ptr("123"),
			"Email":        nil,
		},
		Intent:   ptr("refund_status"),
		KbAnswer: ptr("Refunds take 5 days"),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if *rsp.Emotion != "anger" || *rsp.Intent != "refund_status" {
		t.Fatalf("annotations %+v", rsp)
	}
	if len(rsp.Entities) != 1 || rsp.Entities[entity_type_enum.OrderNumber] != "123" {
		t.Fatalf("entities=%v", rsp.Entities)
	}
	// 客户自己看不到知识库答案
	if rsp.KbAnswer != nil {
		t.Fatalf("kb_answer leaked to customer")
	}

	agentView, err := svc.List(ctx, a1, sid, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := agentView.Messages[0].KbAnswer; got == nil || *got != "Refunds take 5 days" {
		t.Fatalf("agent should see kb_answer, got %v", got)
	}
	customerView, _ := svc.List(ctx, c1, sid, 0)
	if customerView.Messages[0].KbAnswer != nil {
		t.Fatalf("customer list leaked kb_answer")
	}

	// 结果信号随消息写入
	if _, err := svc.Append(ctx, a1, request.SendMessageRequest{SessionId: sid, Text: "done", Outcome: ptr(outcome_enum.Resolved)}); err != nil {
		t.Fatalf("Append outcome: %v", err)
	}
	s, err := repos.Session.FindByUuid(sid)
	if err != nil {
		t.Fatalf("FindByUuid: %v", err)
	}
	if s.Outcome != outcome_enum.Resolved || s.LastMessageId != 2 {
		t.Fatalf("session outcome=%s last=%d", s.Outcome, s.LastMessageId)
	}
}

func TestListRespectsMaxBatch(t *testing.T) {
	_, svc, sid := setup(t, config.PollingConfig{IntervalMs: 1500, MaxBatch: 2})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		send(t, svc, c1, sid, fmt.Sprintf("m%d", i))
	}

	var (
		since int64
		ids   []int64
		pages int
	)
	for {
		page, err := svc.List(ctx, c1, sid, since)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if page.PollIntervalMs != 1500 {
			t.Fatalf("poll interval=%d", page.PollIntervalMs)
		}
		pages++
		for _, m := range page.Messages {
			ids = append(ids, m.MessageId)
		}
		since = page.LastId
		if !page.HasMore {
			break
		}
	}
	if pages != 3 || len(ids) != 5 || ids[4] != 5 {
		t.Fatalf("pages=%d ids=%v", pages, ids)
	}
}

func TestConcurrentAppendKeepsIdsContiguous(t *testing.T) {
	_, svc, sid := setup(t, config.PollingConfig{})
	ctx := context.Background()

	const perSide = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	for _, caller := range []access.Caller{c1, a1} {
		for i := 0; i < perSide; i++ {
			wg.Add(1)
			go func(caller access.Caller, i int) {
				defer wg.Done()
				rsp, err := svc.Append(ctx, caller, request.SendMessageRequest{SessionId: sid, Text: fmt.Sprintf("%s-%d", caller.UserID, i)})
				if err != nil {
					t.Errorf("Append: %v", err)
					return
				}
				mu.Lock()
				ids = append(ids, rsp.MessageId)
				mu.Unlock()
			}(caller, i)
		}
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("ids not contiguous: %v", ids)
		}
	}
	list, err := svc.List(ctx, admin, sid, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Messages) != 2*perSide {
		t.Fatalf("stored %d messages", len(list.Messages))
	}
}
