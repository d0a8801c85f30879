package analytics

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"support_chat_server/internal/model"
	"support_chat_server/pkg/enum/message/sender_role_enum"
)

func ptr(s string) *string { return &s }

func endedSession(uuid, agentId, outcome string) *model.Session {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &model.Session{
		Uuid:       uuid,
		CustomerId: "C-" + uuid,
		AgentId:    agentId,
		State:      "ended",
		Outcome:    outcome,
		StartedAt:  start,
		EndedAt:    sql.NullTime{Time: start.Add(10 * time.Minute), Valid: true},
	}
}

func TestBuildCard(t *testing.T) {
	session := endedSession("S1", "A1", "resolved")
	messages := []model.Message{
		{Seq: 3, SenderRole: sender_role_enum.Customer, Emotion: ptr("happiness"),
			Entities: map[string]string{"Order Number": "B-2"}},
		{Seq: 1, SenderRole: sender_role_enum.Customer, Emotion: ptr("anger"),
			Entities: map[string]string{"Order Number": "A-1", "Email": "a@b.c"}, Intent: ptr("refund")},
		{Seq: 2, SenderRole: sender_role_enum.Customer, Emotion: ptr("anger"), Intent: ptr("shipping")},
		{Seq: 4, SenderRole: sender_role_enum.Agent, Emotion: ptr("no_emotion")},
	}

	card := BuildCard(session, messages)

	if card.MessageCount != 4 {
		t.Fatalf("message_count=%d", card.MessageCount)
	}
	wantCustomer := map[string]int64{"anger": 2, "happiness": 1}
	if !reflect.DeepEqual(card.CustomerEmotions, wantCustomer) {
		t.Fatalf("customer emotions=%v want %v", card.CustomerEmotions, wantCustomer)
	}
	if !reflect.DeepEqual(card.AgentEmotions, map[string]int64{"no_emotion": 1}) {
		t.Fatalf("agent emotions=%v", card.AgentEmotions)
	}
	// 每种实体只保留首次出现的值，顺序以 Seq 为准
	wantNer := map[string]string{"Order Number": "A-1", "Email": "a@b.c"}
	if !reflect.DeepEqual(card.NerSummary, wantNer) {
		t.Fatalf("ner_summary=%v want %v", card.NerSummary, wantNer)
	}
	if card.IntentClassified != "refund" {
		t.Fatalf("intent=%q", card.IntentClassified)
	}
	if card.EntityCounts["Order Number"]["A-1"] != 1 || card.EntityCounts["Order Number"]["B-2"] != 1 {
		t.Fatalf("entity counts=%v", card.EntityCounts)
	}
	if card.EndedAt == nil {
		t.Fatalf("end_time missing")
	}
}

func TestBuildCardEmptySession(t *testing.T) {
	card := BuildCard(endedSession("S0", "A1", "pending"), nil)
	if card.MessageCount != 0 || len(card.NerSummary) != 0 || card.IntentClassified != "" {
		t.Fatalf("unexpected card %+v", card)
	}
}

func TestFoldIsOrderIndependent(t *testing.T) {
	cards := []Card{
		BuildCard(endedSession("S1", "A1", "resolved"), []model.Message{
			{Seq: 1, SenderRole: sender_role_enum.Customer, Emotion: ptr("anger"),
				Entities: map[string]string{"Product": "kettle"}},
		}),
		BuildCard(endedSession("S2", "A1", "escalated"), []model.Message{
			{Seq: 1, SenderRole: sender_role_enum.Customer, Emotion: ptr("fear")},
			{Seq: 2, SenderRole: sender_role_enum.Agent, Emotion: ptr("happiness")},
		}),
		BuildCard(endedSession("S3", "A2", "resolved"), []model.Message{
			{Seq: 1, SenderRole: sender_role_enum.Customer,
				Entities: map[string]string{"Product": "kettle", "Phone": "555"}},
		}),
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}}
	var first *Summary
	for _, order := range orders {
		s := NewSummary()
		for _, i := range order {
			s.Fold(cards[i])
		}
		if first == nil {
			first = s
			continue
		}
		if !reflect.DeepEqual(first, s) {
			t.Fatalf("order %v produced %+v, want %+v", order, s, first)
		}
	}

	if first.Sessions != 3 {
		t.Fatalf("sessions=%d", first.Sessions)
	}
	if first.Outcomes["resolved"] != 2 || first.Outcomes["escalated"] != 1 {
		t.Fatalf("outcomes=%v", first.Outcomes)
	}
	if first.Entities["Product"]["kettle"] != 2 {
		t.Fatalf("entities=%v", first.Entities)
	}
}

func TestMergeMatchesFold(t *testing.T) {
	a := BuildCard(endedSession("S1", "A1", "resolved"), []model.Message{
		{Seq: 1, SenderRole: sender_role_enum.Customer, Emotion: ptr("sadness")},
	})
	b := BuildCard(endedSession("S2", "A2", "pending"), []model.Message{
		{Seq: 1, SenderRole: sender_role_enum.Agent, Emotion: ptr("surprise")},
	})

	all := NewSummary()
	all.Fold(a)
	all.Fold(b)

	left, right := NewSummary(), NewSummary()
	left.Fold(a)
	right.Fold(b)
	merged := NewSummary()
	merged.Merge(right)
	merged.Merge(left)
	merged.Merge(nil)

	if !reflect.DeepEqual(all, merged) {
		t.Fatalf("merge=%+v fold=%+v", merged, all)
	}
}

func TestSummaryModelRoundTrip(t *testing.T) {
	row := &model.AnalyticsSummary{Scope: model.FleetScope}
	s := fromModel(row)
	s.Fold(BuildCard(endedSession("S1", "A1", "resolved"), nil))
	s.applyTo(row)
	if row.Sessions != 1 || row.Outcomes["resolved"] != 1 {
		t.Fatalf("row=%+v", row)
	}
}
