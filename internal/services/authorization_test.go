package services

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name        string
		requesterID string
		role        string
		ownerID     string
		wantErr     bool
	}{
		{"owner", "42", "USER", "42", false},
		{"owner without role", "42", "", "42", false},
		{"other user", "77", "USER", "42", true},
		{"admin on foreign resource", "77", "ADMIN", "42", false},
		{"admin lowercase", "77", "admin", "42", false},
		{"anonymous against empty owner", "", "USER", "", true},
		{"anonymous admin role", "", "ADMIN", "42", false},
		{"role prefix is not stripped here", "77", "ROLE_ADMIN", "42", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.requesterID, tt.role, tt.ownerID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
			var permissionErr *PermissionError
			if !errors.As(err, &permissionErr) {
				t.Errorf("expected *PermissionError, got %T", err)
			}
		})
	}
}
