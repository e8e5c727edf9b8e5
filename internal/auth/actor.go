package auth

import "github.com/google/uuid"

// Roles carried in token claims. Membership authorization itself is handled
// upstream; the engine only distinguishes staff actors from clients.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleClient = "client"
)

// Actor is the authenticated caller extracted from the request token.
type Actor struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Role     string
	FullName string
	Email    string
	Phone    string
}

func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleOwner, RoleAdmin, RoleStaff:
		return true
	}
	return false
}
