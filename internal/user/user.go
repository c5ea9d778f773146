package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse access label attached to an account.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// OrDefault returns r, or RoleUser when the backend omitted the role.
func (r Role) OrDefault() Role {
	if r == "" {
		return RoleUser
	}

	return r
}

// User represents an account holder.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}
