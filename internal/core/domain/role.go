package domain

import "strings"

// RoleName is the canonical name of one of the fixed roles.
type RoleName string

const (
	RoleUser      RoleName = "USER"
	RoleModerator RoleName = "MODERATOR"
	RoleAdmin     RoleName = "ADMIN"
)

// Role is a persisted entry of the role catalog.
type Role struct {
	ID   string
	Name RoleName
}

// AllRoles lists the closed role enumeration in ascending privilege order.
// It is the seed set for the role catalog.
func AllRoles() []RoleName {
	return []RoleName{RoleUser, RoleModerator, RoleAdmin}
}

// IsValid reports whether r belongs to the closed role enumeration.
func (r RoleName) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleFromLabel maps a free-form signup label to a canonical role.
// "admin" and "mod" (any case) select ADMIN and MODERATOR; every other value,
// empty included, falls back to USER.
func RoleFromLabel(label string) RoleName {
	switch strings.ToLower(label) {
	case "admin":
		return RoleAdmin
	case "mod":
		return RoleModerator
	default:
		return RoleUser
	}
}
