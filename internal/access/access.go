// Package access holds roles, capabilities and the single authorization check
// used by every service and route.
package access

import "fmt"

// Role is the group a user belongs to.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Capability is a named permission.
type Capability string

const (
	ManageCatalog        Capability = "catalog:manage"
	ManageCertifications Capability = "certifications:manage"
	ViewAllOrders        Capability = "orders:view_all"
	ViewAllPayments      Capability = "payments:view_all"
	RefundPayments       Capability = "payments:refund"
	SimulatePayments     Capability = "payments:simulate"
	ManageUsers          Capability = "users:manage"
)

var elevated = []Capability{
	ManageCatalog,
	ViewAllOrders,
	ViewAllPayments,
	RefundPayments,
	SimulatePayments,
}

var grants = map[Role]map[Capability]bool{
	RoleUser:      {},
	RoleModerator: set(elevated...),
	RoleAdmin:     set(append(elevated, ManageCertifications, ManageUsers)...),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Can reports whether role holds capability.
func Can(role Role, capability Capability) bool {
	return grants[role][capability]
}

// Actor is the authenticated subject of a request.
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

// Can reports whether the actor's role holds capability.
func (a Actor) Can(capability Capability) bool {
	return Can(a.Role, capability)
}
