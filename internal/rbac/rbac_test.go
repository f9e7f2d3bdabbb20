package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		role, action string
		want         bool
	}{
		{RoleAdmin, ActionAdmin, true},
		{RoleAdmin, ActionWrite, true},
		{RoleDesigner, ActionWrite, true},
		{RoleDesigner, ActionAdmin, false},
		{RoleDesigner, ActionApprove, false},
		{RoleClient, ActionRead, true},
		{RoleClient, ActionApprove, true},
		{RoleClient, ActionWrite, false},
		{RoleVendor, ActionRead, true},
		{RoleVendor, ActionWrite, false},
		{"ghost", ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestKnownRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleDesigner, RoleClient, RoleVendor} {
		if !KnownRole(role) {
			t.Errorf("KnownRole(%s) = false", role)
		}
	}
	if KnownRole("superuser") {
		t.Error("superuser should be unknown")
	}
}
