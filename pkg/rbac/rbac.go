// Package rbac provides role-based access control checks.
//
// The router consults it once per request before dispatch, so individual
// handlers never re-implement role checks.
package rbac

import (
	"github.com/codehubbers/hubbergram/pkg/model"
)

// permissionMatrix maps roles to their allowed permissions.
var permissionMatrix = map[model.Role]map[model.Permission]bool{
	model.RoleAdmin: {
		model.PermViewLocations: true,
		model.PermListUsers:     true,
	},
	model.RoleRegular: {
		// No operator permissions, may only message and share location
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role model.Role, perm model.Permission) bool {
	perms, ok := permissionMatrix[role]
	if !ok {
		return false
	}
	return perms[perm]
}
