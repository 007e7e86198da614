package models

import (
	"encoding/json"
	"strings"
)

// Role is the account role reported by the auth API.
// Roles are flat: no role implies another.
type Role string

// Role constants
const (
	RoleUnknown Role = ""
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole converts a raw role string into a Role.
// Anything outside the closed set becomes RoleUnknown.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent
	case RoleTutor:
		return RoleTutor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether r is one of STUDENT, TUTOR or ADMIN.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTutor || r == RoleAdmin
}

// UnmarshalJSON accepts any casing and maps unrecognised values to RoleUnknown.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ParseRole(raw)
	return nil
}

// ContainsRole reports whether role is a member of roles.
func ContainsRole(roles []Role, role Role) bool {
	if !role.IsValid() {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
