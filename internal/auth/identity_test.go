package auth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIdentity_Role(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		want     string
	}{
		{name: "anonymous defaults to USER", identity: Anonymous(), want: "USER"},
		{name: "first role label wins", identity: Identity{UserID: "u", Authorities: []string{"SCOPE_read", "ROLE_ADMIN", "ROLE_USER"}}, want: "ADMIN"},
		{name: "no role label", identity: Identity{UserID: "u", Authorities: []string{"SCOPE_read"}}, want: "USER"},
		{name: "built from lowercase role", identity: NewIdentity("u", "admin"), want: "ADMIN"},
		{name: "built from empty role", identity: NewIdentity("u", ""), want: "USER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.Role(); got != tt.want {
				t.Errorf("Role() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	identity := NewIdentity("u-1", "Admin")
	if !identity.HasRole("admin") {
		t.Error("expected admin role")
	}
	if identity.HasRole("user") {
		t.Error("did not expect user role")
	}
	if diff := cmp.Diff([]string{"ROLE_ADMIN"}, identity.Authorities); diff != "" {
		t.Errorf("authorities mismatch (-want +got):\n%s", diff)
	}
}
