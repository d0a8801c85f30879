package access

import (
	"testing"

	"support_chat_server/internal/model"
	"support_chat_server/pkg/enum/message/sender_role_enum"
	"support_chat_server/pkg/enum/user/role_enum"
)

func TestSessionPermissions(t *testing.T) {
	bound := &model.Session{CustomerId: "C1", AgentId: "A1"}
	pending := &model.Session{CustomerId: "C1"}

	tests := []struct {
		name       string
		caller     Caller
		session    *model.Session
		read       bool
		setOutcome bool
		sender     string
	}{
		{"customer owner", Caller{"C1", role_enum.Customer}, bound, true, false, sender_role_enum.Customer},
		{"other customer", Caller{"C2", role_enum.Customer}, bound, false, false, ""},
		{"bound agent", Caller{"A1", role_enum.Agent}, bound, true, true, sender_role_enum.Agent},
		{"other agent", Caller{"A2", role_enum.Agent}, bound, false, false, ""},
		{"agent id used as customer", Caller{"A1", role_enum.Customer}, bound, false, false, ""},
		{"admin", Caller{"root", role_enum.Admin}, bound, true, true, ""},
		{"classifier", Caller{"nlp", role_enum.Classifier}, bound, false, true, ""},
		{"empty agent on pending", Caller{"", role_enum.Agent}, pending, false, false, ""},
		{"customer on pending", Caller{"C1", role_enum.Customer}, pending, true, false, sender_role_enum.Customer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRead(tt.caller, tt.session); got != tt.read {
				t.Errorf("CanRead=%v want %v", got, tt.read)
			}
			if got := CanEnd(tt.caller, tt.session); got != tt.read {
				t.Errorf("CanEnd=%v want %v", got, tt.read)
			}
			if got := CanSetOutcome(tt.caller, tt.session); got != tt.setOutcome {
				t.Errorf("CanSetOutcome=%v want %v", got, tt.setOutcome)
			}
			role, ok := SenderRole(tt.caller, tt.session)
			if role != tt.sender || ok != (tt.sender != "") {
				t.Errorf("SenderRole=(%q,%v) want %q", role, ok, tt.sender)
			}
		})
	}
}

func TestViewPermissions(t *testing.T) {
	if !CanViewAgent(Caller{"A1", role_enum.Agent}, "A1") || CanViewAgent(Caller{"A2", role_enum.Agent}, "A1") {
		t.Fatalf("agents may only view themselves")
	}
	if !CanViewAgent(Caller{"root", role_enum.Admin}, "A1") {
		t.Fatalf("admin may view any agent")
	}
	if CanViewAgent(Caller{"A1", role_enum.Customer}, "A1") {
		t.Fatalf("customer must not view agent data")
	}
	if CanViewFleet(Caller{"C1", role_enum.Customer}) || !CanViewFleet(Caller{"A1", role_enum.Agent}) {
		t.Fatalf("fleet view: agents yes, customers no")
	}
}
