package config

import (
	"fmt"
	"strings"

	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

// Role is the part a node plays in the deployment.
type Role string

const (
	RoleControl   Role = "control"
	RoleCompute   Role = "compute"
	RoleConverged Role = "converged"
)

// Roles lists the accepted roles in display order.
func Roles() []Role {
	return []Role{RoleControl, RoleCompute, RoleConverged}
}

// ParseRole accepts a role name in any case.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", sunbeamerrors.NewValidationError("role", fmt.Sprintf("unknown role %q, expected one of control, compute, converged", raw), nil)
	}
	return role, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleControl, RoleCompute, RoleConverged:
		return true
	}
	return false
}

// IsControl reports whether the node runs the control plane.
func (r Role) IsControl() bool { return r == RoleControl || r == RoleConverged }

// IsCompute reports whether the node runs the hypervisor.
func (r Role) IsCompute() bool { return r == RoleCompute || r == RoleConverged }

// IsConverged reports whether the node runs both.
func (r Role) IsConverged() bool { return r == RoleConverged }

func (r Role) String() string { return string(r) }
