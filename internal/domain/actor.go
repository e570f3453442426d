package domain

import (
	"fmt"
	"time"
)

// Role is the privilege level carried by an authenticated administrator.
type Role string

const (
	// RoleVendor is the vendor-admin role. It is the only role allowed to
	// manage vendor records.
	RoleVendor     Role = "vendor"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole converts a raw claim value into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleVendor, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanManageVendors reports whether the role may list and mutate vendors.
func (r Role) CanManageVendors() bool {
	switch r {
	case RoleVendor:
		return true
	case RoleSuperAdmin:
		return false
	}
	return false
}

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID   string
	Role Role
}

// Authorize gates every vendor operation. It performs no I/O.
func (a Actor) Authorize() error {
	if a.ID == "" {
		return ErrUnauthenticated
	}
	if !a.Role.CanManageVendors() {
		return ErrForbidden
	}
	return nil
}

// Admin is a login-capable administrator account.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
