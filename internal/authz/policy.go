package authz

import "github.com/taskhive/taskhive/internal/models"

// Actor is the verified identity an operation executes on behalf of.
type Actor struct {
	ID       string
	Username string
	Role     string
}

// Action enumerates the operations a policy decision can gate.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Decision is the typed outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Allowed reports whether the decision permits the operation.
func (d Decision) Allowed() bool {
	return d == Allow
}

// Authorize applies the owner-or-admin rule: admins may act on any resource,
// users only on resources they own. Unrecognised roles are always denied.
// Callers must pass the current authoritative owner, never a cached one.
func Authorize(actor Actor, resourceOwnerID string, action Action) Decision {
	switch actor.Role {
	case models.RoleAdmin:
		return Allow
	case models.RoleUser:
		if actor.ID != "" && actor.ID == resourceOwnerID {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}
