package postgres

import (
	"context"
	"database/sql"
	"time"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/google/uuid"
)

type passwordHistoryRepository struct {
	repository.BaseRepository
}

// NewPasswordHistoryRepository creates a new PostgreSQL password history repository
func NewPasswordHistoryRepository(db *sql.DB) repository.PasswordHistoryRepository {
	return &passwordHistoryRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *passwordHistoryRepository) Record(ctx context.Context, userID uuid.UUID, passwordHash string, ipAddress, userAgent *string) (*models.PasswordHistory, error) {
	if userID == uuid.Nil || passwordHash == "" {
		return nil, repository.ErrValidation
	}

	// Verify the owner exists before appending
	var exists bool
	err := r.DB().QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}

	entry := &models.PasswordHistory{
		ID:           uuid.New(),
		UserID:       userID,
		PasswordHash: passwordHash,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	}

	query := `
		INSERT INTO password_history (
			id, user_id, password_hash, ip_address, user_agent
		) VALUES (
			$1, $2, $3, $4, $5
		)
		RETURNING created_at`

	err = r.DB().QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.PasswordHash,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *passwordHistoryRepository) Recent(ctx context.Context, userID uuid.UUID, count int) ([]models.PasswordHistory, error) {
	if count <= 0 {
		return nil, repository.ErrValidation
	}

	query := `
		SELECT id, user_id, password_hash, created_at
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.DB().QueryContext(ctx, query, userID, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PasswordHistory
	for rows.Next() {
		var entry models.PasswordHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.PasswordHash,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *passwordHistoryRepository) Trim(ctx context.Context, userID uuid.UUID, keep int) (int64, error) {
	if keep < 0 {
		return 0, repository.ErrValidation
	}

	query := `
		DELETE FROM password_history
		WHERE user_id = $1
		AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`

	result, err := r.DB().ExecContext(ctx, query, userID, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *passwordHistoryRepository) Purge(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.DB().ExecContext(ctx,
		"DELETE FROM password_history WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *passwordHistoryRepository) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM password_history WHERE created_at < $1`

	cutoff := time.Now().Add(-olderThan)
	result, err := r.DB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
