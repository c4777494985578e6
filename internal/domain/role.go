package domain

import (
	"errors"
	"fmt"
)

// Role is the membership privilege level within a scope.
type Role string

// Roles ordered from most to least privileged.
const (
	RoleOwner      Role = "owner"
	RoleMaintainer Role = "maintainer"
	RoleMember     Role = "member"
)

// ErrInvalidRole reports a role value outside the enumerated set.
var ErrInvalidRole = errors.New("domain: invalid role")

// AllRoles lists every valid role. Used for "any membership" checks.
var AllRoles = []Role{RoleOwner, RoleMaintainer, RoleMember}

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleOwner, RoleMaintainer, RoleMember:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// Action is a capability a role may hold.
type Action string

const (
	ActionRead        Action = "read"
	ActionMutateScope Action = "mutate_scope"
	ActionCreateAPI   Action = "create_api"
)

// Can reports whether role holds the capability. It is total over the
// enumerated role set and rejects anything else instead of defaulting
// to allow or deny.
func Can(role Role, action Action) (bool, error) {
	switch role {
	case RoleOwner:
		return true, nil
	case RoleMaintainer:
		return action == ActionRead || action == ActionCreateAPI, nil
	case RoleMember:
		return action == ActionRead, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidRole, role)
}

// RolesWith returns the roles that hold the capability.
func RolesWith(action Action) []Role {
	roles := make([]Role, 0, len(AllRoles))
	for _, role := range AllRoles {
		if ok, _ := Can(role, action); ok {
			roles = append(roles, role)
		}
	}
	return roles
}
