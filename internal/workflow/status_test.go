package workflow

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		kind, from, to string
		want           bool
	}{
		{KindProposal, StatusDraft, StatusSent, true},
		{KindProposal, StatusSent, StatusApproved, true},
		{KindProposal, StatusSent, StatusRejected, true},
		{KindProposal, StatusDraft, StatusApproved, false},
		{KindProposal, StatusApproved, StatusSent, false},
		{KindProposal, StatusSent, StatusConfirmed, false},
		{KindPurchaseOrder, StatusDraft, StatusSent, true},
		{KindPurchaseOrder, StatusSent, StatusConfirmed, true},
		{KindPurchaseOrder, StatusSent, StatusCancelled, true},
		{KindPurchaseOrder, StatusDraft, StatusConfirmed, false},
		{KindPurchaseOrder, StatusCancelled, StatusSent, false},
		{KindPurchaseOrder, StatusSent, StatusApproved, false},
		{"unknown", StatusDraft, StatusSent, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.kind, tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tc.kind, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		kind, status string
		want         bool
	}{
		{KindProposal, StatusApproved, true},
		{KindProposal, StatusRejected, true},
		{KindProposal, StatusDraft, false},
		{KindProposal, StatusSent, false},
		{KindPurchaseOrder, StatusConfirmed, true},
		{KindPurchaseOrder, StatusCancelled, true},
		{KindPurchaseOrder, StatusSent, false},
		{"unknown", StatusDraft, false},
	}
	for _, tc := range cases {
		if got := IsTerminal(tc.kind, tc.status); got != tc.want {
			t.Errorf("IsTerminal(%s, %s) = %v, want %v", tc.kind, tc.status, got, tc.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus(KindProposal, StatusDraft) {
		t.Error("draft should be valid for proposals")
	}
	if ValidStatus(KindProposal, StatusConfirmed) {
		t.Error("confirmed belongs to purchase orders only")
	}
	if ValidStatus(KindPurchaseOrder, StatusApproved) {
		t.Error("approved belongs to proposals only")
	}
	if ValidStatus("unknown", StatusDraft) {
		t.Error("unknown kind should have no valid statuses")
	}
}
