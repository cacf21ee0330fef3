package auth

import (
	"strings"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
)

// Identity is the caller resolved for a single request. The zero value is
// the anonymous identity.
type Identity struct {
	UserID      string   `json:"user_id"`
	Authorities []string `json:"authorities"`
}

// Anonymous returns an identity with no subject and no authorities.
func Anonymous() Identity {
	return Identity{}
}

// NewIdentity builds an identity carrying a single role label. An empty role
// becomes USER.
func NewIdentity(userID, role string) Identity {
	return Identity{
		UserID:      userID,
		Authorities: []string{authorityFor(role)},
	}
}

// IsAuthenticated reports whether a subject was established.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

// Role returns the first role label with its prefix removed, or USER when
// the identity carries none.
func (i Identity) Role() string {
	for _, authority := range i.Authorities {
		if strings.HasPrefix(authority, models.RoleAuthorityPrefix) {
			return strings.TrimPrefix(authority, models.RoleAuthorityPrefix)
		}
	}
	return models.RoleUser.String()
}

// HasRole reports whether any authority matches role, ignoring case.
func (i Identity) HasRole(role string) bool {
	want := authorityFor(role)
	for _, authority := range i.Authorities {
		if strings.EqualFold(authority, want) {
			return true
		}
	}
	return false
}

func authorityFor(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = models.RoleUser.String()
	}
	return models.RoleAuthorityPrefix + role
}
