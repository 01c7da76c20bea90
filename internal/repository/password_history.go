package repository

import (
	"context"
	"time"
	"credcore/internal/models"

	"github.com/google/uuid"
)

// Default retention applied by the maintenance sweep and the reuse check.
const (
	PasswordHistoryKeep      = 5
	PasswordHistoryRetention = 90 * 24 * time.Hour
)

// PasswordHistoryRepository defines the interface for the append-only log of
// prior password hashes. The store never sees plaintext; reuse checking is
// composed by the credential service on top of Recent.
type PasswordHistoryRepository interface {
	Repository
	// Record appends an entry. ErrValidation for a nil owner or empty hash,
	// ErrNotFound when the owner row does not exist.
	Record(ctx context.Context, userID uuid.UUID, passwordHash string, ipAddress, userAgent *string) (*models.PasswordHistory, error)
	// Recent returns up to count entries, newest first. count must be > 0.
	Recent(ctx context.Context, userID uuid.UUID, count int) ([]models.PasswordHistory, error)
	// Trim deletes all but the keep newest entries, returning the number
	// removed. Idempotent.
	Trim(ctx context.Context, userID uuid.UUID, keep int) (int64, error)
	// Purge deletes every entry for the owner (right-to-erasure fallback;
	// ON DELETE CASCADE is the usual path).
	Purge(ctx context.Context, userID uuid.UUID) (int64, error)
	// CleanupOld removes entries older than the retention window.
	CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error)
}
