// Package model defines the core domain types for Hubbergram.
package model

// Role represents a user's permission level.
type Role int

const (
	RoleRegular Role = iota // Default role, can message and share location
	RoleAdmin               // Operator: may view shared locations and list users
)

func (r Role) String() string {
	switch r {
	case RoleRegular:
		return "regular"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts a string to a Role.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleRegular
}

// Valid returns true if the role is a recognised value (Regular or Admin).
func (r Role) Valid() bool {
	return r >= RoleRegular && r <= RoleAdmin
}

// Permission represents a specific action that can be checked against a role.
type Permission int

const (
	PermViewLocations Permission = iota
	PermListUsers
)
