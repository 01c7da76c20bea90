package postgres

import (
	"context"
	"database/sql"
	"time"
	"credcore/internal/repository"

	"github.com/google/uuid"
)

type loginAttemptRepository struct {
	repository.BaseRepository
}

// NewLoginAttemptRepository creates a new PostgreSQL login attempt repository
func NewLoginAttemptRepository(db *sql.DB) repository.LoginAttemptRepository {
	return &loginAttemptRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *loginAttemptRepository) Create(ctx context.Context, userID *uuid.UUID, successful bool, ipAddress string, createdAt time.Time) error {
	query := `
		INSERT INTO login_attempts (id, user_id, success, ip, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.DB().ExecContext(ctx, query, uuid.New(), userID, successful, ipAddress, createdAt)
	return err
}

func (r *loginAttemptRepository) CountRecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE user_id = $1
		AND success = false
		AND created_at > $2`

	var count int
	err := r.DB().QueryRowContext(ctx, query, userID, since).Scan(&count)
	return count, err
}

func (r *loginAttemptRepository) ClearAttempts(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB().ExecContext(ctx,
		"DELETE FROM login_attempts WHERE user_id = $1", userID)
	return err
}

func (r *loginAttemptRepository) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := r.DB().ExecContext(ctx,
		"DELETE FROM login_attempts WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
