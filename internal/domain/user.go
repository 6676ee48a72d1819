package domain

import "time"

// Role enumerates the closed set of account roles.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAgent      Role = "AGENT"
	RoleCustomer   Role = "CUSTOMER"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleAgent, RoleCustomer}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// IsStaff reports whether r is a non-customer role.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSupervisor || r == RoleAgent
}

// User is an account that can sign in. Customers sign in with a magic link,
// staff with a password.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	Active       bool
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether a password hash is stored.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserListItem is a user row with its open workload.
type UserListItem struct {
	User            User
	AssignedTickets int
}
