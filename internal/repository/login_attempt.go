package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MaxLoginAttempts = 5
	LockoutDuration  = 15 * time.Minute
)

// LoginAttemptRepository tracks failed and successful login attempts per user
type LoginAttemptRepository interface {
	Repository
	Create(ctx context.Context, userID *uuid.UUID, successful bool, ipAddress string, createdAt time.Time) error
	CountRecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	ClearAttempts(ctx context.Context, userID uuid.UUID) error
	CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error)
}
