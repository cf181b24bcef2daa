package shared

import "github.com/google/uuid"

// Role names carried in JWT claims
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Actor identifies the authenticated caller of an application service.
// Authorization decisions are made against the actor, never against raw
// request headers.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Roles    []string
}

// HasRole returns true if the actor carries the given role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the actor holds an administrative role
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin) || a.HasRole(RoleSuperAdmin)
}

// IsSuperAdmin returns true if the actor holds the super-admin role,
// which bypasses tenant checks
func (a Actor) IsSuperAdmin() bool {
	return a.HasRole(RoleSuperAdmin)
}

// AuthorizeTenantAdmin enforces the cross-cutting authorization rule for
// administrative operations: the actor must hold an administrative role and
// belong to the target tenant. Super-admins bypass the tenant check.
func AuthorizeTenantAdmin(actor Actor, tenantID uuid.UUID) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if actor.IsSuperAdmin() {
		return nil
	}
	if actor.TenantID != tenantID {
		return ErrForbidden
	}
	return nil
}
