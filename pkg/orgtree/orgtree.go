// Package orgtree derives view structures from a flat snapshot of employee
// rows: the manager/BDM/BDE hierarchy, free-text and role filters, and
// reference-name resolution. Every function is pure and total: empty input,
// nil reference fields, and dangling ids degrade to empty results or sentinel
// labels, never to an error or panic.
package orgtree

import (
	"errors"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleBDM     Role = "business_development_manager"
	RoleBDE     Role = "business_development_executive"
)

var ErrUnknownRole = errors.New("orgtree: unknown role")

// ParseRole accepts only the four canonical role slugs.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleBDM:
		return RoleBDM, nil
	case RoleBDE:
		return RoleBDE, nil
	default:
		return "", ErrUnknownRole
	}
}

// Employee is the read-only row this package consumes. ManagerID is populated
// only for BDM rows, BDMID only for BDE rows; neither convention is enforced
// here.
type Employee struct {
	ID          int    `json:"id"`
	Code        string `json:"employee_id"`
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	JobLocation string `json:"job_location"`
	Role        Role   `json:"user_type"`
	ManagerID   *int   `json:"manager_id,omitempty"`
	BDMID       *int   `json:"bdm_id,omitempty"`
}

func IsManager(e Employee) bool { return e.Role == RoleManager }
func IsBDM(e Employee) bool     { return e.Role == RoleBDM }
func IsBDE(e Employee) bool     { return e.Role == RoleBDE }

// CanAssignToManager reports whether e may report to manager m. Managers may
// not report to managers, and self-assignment is forbidden. The target's own
// role is deliberately not checked; callers that need that guarantee must
// validate m themselves.
func CanAssignToManager(e, m Employee) bool {
	if e.Role == RoleManager {
		return false
	}
	return e.ID != m.ID
}

// CanAssignToBDM reports whether e may report to BDM b. Only BDE rows are
// eligible, and self-assignment is forbidden. As with CanAssignToManager, the
// target's role is not checked.
func CanAssignToBDM(e, b Employee) bool {
	if e.Role != RoleBDE {
		return false
	}
	return e.ID != b.ID
}
