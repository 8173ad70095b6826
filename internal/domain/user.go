package domain

import "time"

// Role enumerates the access levels known to the system.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleClient     Role = "CLIENT"
)

// IsValidRole reports whether r belongs to the closed role set.
// Anything else fails closed in permission checks.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleClient:
		return true
	}
	return false
}

// User is the identity record behind authentication.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
