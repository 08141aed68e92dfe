package rbac

import "testing"

func TestCan(t *testing.T) {
	tests := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleAdmin, ActionRead, true},
		{RoleAdmin, ActionWrite, true},
		{RoleAdmin, ActionAdmin, true},
		{RoleEditor, ActionRead, true},
		{RoleEditor, ActionWrite, true},
		{RoleEditor, ActionAdmin, false},
		{RoleViewer, ActionRead, true},
		{RoleViewer, ActionWrite, false},
		{Role("guest"), ActionRead, false},
	}

	for _, test := range tests {
		if got := Can(test.role, test.action); got != test.want {
			t.Errorf("Can(%q, %q) = %v, want %v", test.role, test.action, got, test.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Errorf("expected admin to survive normalization")
	}
	if Normalize("superuser") != RoleViewer {
		t.Errorf("expected unknown role to normalize to viewer")
	}
	if Normalize("") != RoleViewer {
		t.Errorf("expected empty role to normalize to viewer")
	}
}
