package dto

import (
	"time"

	"github.com/helpdesk-io/support-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UpdateUserRequest is the partial-edit payload for the admin user surface.
// Absent fields stay unchanged; a supplied password is re-hashed.
type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
}

// UserResponse is the wire form of a user. The password hash never leaves
// the service.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}
