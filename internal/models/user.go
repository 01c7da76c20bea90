package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names assigned to users at registration time.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a user account and its credential state
type User struct {
	ID                   uuid.UUID  `json:"id"`
	Email                string     `json:"email"`
	Password             string     `json:"-"`
	Role                 string     `json:"role"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	LastLoginAt          *time.Time `json:"last_login_at"`
	PasswordChangedAt    *time.Time `json:"password_changed_at,omitempty"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasResetToken reports whether a reset token is currently issued.
// The token and its expiry are always both set or both null.
func (u *User) HasResetToken() bool {
	return u.PasswordResetToken != nil && u.PasswordResetExpires != nil
}
