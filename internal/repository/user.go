package repository

import (
	"context"
	"time"
	"credcore/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user credential storage.
// Emails are stored case-folded; lookups expect the caller to normalize.
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByResetToken returns the user whose current reset token equals
	// token and whose expiry is strictly in the future. Anything else is
	// ErrResetTokenInvalid.
	GetByResetToken(ctx context.Context, token string) (*models.User, error)

	// SetResetToken overwrites any existing token/expiry pair on the user.
	// A previously issued token becomes invalid the moment this returns.
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error

	// ConsumeResetToken atomically sets the new password hash and clears the
	// token/expiry pair, but only if the stored token still equals token and
	// has not expired. Exactly one concurrent caller can win; losers get
	// ErrResetTokenInvalid. The updated user is returned to the winner.
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (*models.User, error)

	// ClearExpiredResetTokens nulls out token pairs whose expiry has passed.
	// Purely hygienic; expiry is already enforced at read time.
	ClearExpiredResetTokens(ctx context.Context) (int64, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
