package model

import "testing"

func TestHasRole(t *testing.T) {
	tests := []struct {
		role   Role
		target Role
		want   bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleJonan, true},
		{RoleAdmin, RoleVendor, true},
		{RoleAdmin, RoleParent, true},
		{RoleJonan, RoleJonan, true},
		{RoleJonan, RoleAdmin, false},
		{RoleJonan, RoleVendor, false},
		{RoleVendor, RoleVendor, true},
		{RoleVendor, RoleJonan, false},
		{RoleParent, RoleVendor, false},
	}
	for _, tt := range tests {
		if got := tt.role.HasRole(tt.target); got != tt.want {
			t.Errorf("%s.HasRole(%s) = %v, want %v", tt.role, tt.target, got, tt.want)
		}
	}
}

func TestHasAnyRole(t *testing.T) {
	if !RoleAdmin.HasAnyRole(RoleJonan) {
		t.Error("admin must satisfy the jonan gate")
	}
	if !RoleJonan.HasAnyRole(RoleJonan, RoleVendor) {
		t.Error("jonan must satisfy a gate listing jonan")
	}
	if RoleParent.HasAnyRole(RoleJonan, RoleVendor) {
		t.Error("parent must not satisfy a jonan/vendor gate")
	}
	if RoleVendor.HasAnyRole() {
		t.Error("empty gate must reject a non-admin role")
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles {
		parsed, err := ParseRole(string(role))
		if err != nil || parsed != role {
			t.Errorf("ParseRole(%q) = %q, %v", role, parsed, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("ParseRole accepted unknown role")
	}
}
