package domain

import (
	"encoding/json"
	"testing"
)

func TestGrant_UnmarshalBothShapes(t *testing.T) {
	var info UserInfo
	body := `{"permissions":["marketing.lead.view",{"code":"marketing.lead.edit","name":"Edit leads"}]}`
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	codes := info.PermissionCodes()
	if len(codes) != 2 || codes[0] != PermLeadView || codes[1] != PermLeadEdit {
		t.Fatalf("unexpected codes: %v", codes)
	}
	if info.Permissions[1].Name != "Edit leads" {
		t.Fatalf("expected name to survive, got %q", info.Permissions[1].Name)
	}
}

func TestDecision_OnlyGrantedIsAllowed(t *testing.T) {
	if DecisionUnknown.Allowed() || DecisionDenied.Allowed() {
		t.Fatalf("only granted decisions may allow access")
	}
	if !DecisionOf(true).Allowed() {
		t.Fatalf("expected granted decision")
	}
}

func TestJoinCodes(t *testing.T) {
	got := JoinCodes([]Code{PermLeadView, PermLeadEdit})
	if got != "marketing.lead.view, marketing.lead.edit" {
		t.Fatalf("unexpected join: %q", got)
	}
}
