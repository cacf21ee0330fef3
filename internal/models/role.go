package models

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// RoleAuthorityPrefix decorates a role when it is carried as an authorization label.
const RoleAuthorityPrefix = "ROLE_"

func (r UserRole) String() string {
	return string(r)
}
