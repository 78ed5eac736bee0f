package shared

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the capability a caller acts with
type Role string

const (
	RoleBuyer    Role = "BUYER"
	RoleSupplier Role = "SUPPLIER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalizes a role string. The boolean is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor is the resolved identity and role a request is executed on behalf of.
// It is produced by the interfaces layer and passed into every application entry point.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// NewActor creates an actor, rejecting empty ids and unknown roles
func NewActor(id uuid.UUID, role Role) (Actor, error) {
	if id == uuid.Nil {
		return Actor{}, ErrInvalidInput.WithMessage("Actor ID cannot be empty")
	}
	if !role.IsValid() {
		return Actor{}, ErrInvalidInput.WithMessage("Unknown role: " + string(role))
	}
	return Actor{ID: id, Role: role}, nil
}

// IsAdmin returns true if the actor acts as an administrator
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsBuyer returns true if the actor acts as a buyer
func (a Actor) IsBuyer() bool {
	return a.Role == RoleBuyer
}

// IsSupplier returns true if the actor acts as a supplier
func (a Actor) IsSupplier() bool {
	return a.Role == RoleSupplier
}

// Require returns ErrForbidden unless the actor holds one of the given roles
func (a Actor) Require(roles ...Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return ErrForbidden.WithMessage("Role " + string(a.Role) + " is not allowed to perform this action")
}
