package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt represents a login attempt
type LoginAttempt struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id"` // nil when the email matched no account
	Success   bool       `json:"success"`
	IP        string     `json:"ip"`
	CreatedAt time.Time  `json:"created_at"`
}
