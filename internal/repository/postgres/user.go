package postgres

import (
	"context"
	"database/sql"
	"time"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type userRepository struct {
	repository.BaseRepository
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

const userColumns = `
	id, email, password, role, password_reset_token, password_reset_expires,
	last_login_at, password_changed_at, deleted_at, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.Role,
		&user.PasswordResetToken,
		&user.PasswordResetExpires,
		&user.LastLoginAt,
		&user.PasswordChangedAt,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			id, email, password, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $5
		)
		RETURNING created_at, updated_at`

	now := time.Now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.DB().QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Password,
		user.Role,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return repository.ErrEmailExists
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(r.DB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	user, err := scanUser(r.DB().QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	// Expiry is part of the predicate so expired and unknown tokens are
	// indistinguishable to the caller.
	query := `SELECT` + userColumns + `
		FROM users
		WHERE password_reset_token = $1
		AND password_reset_expires > NOW()
		AND deleted_at IS NULL`

	user, err := scanUser(r.DB().QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, repository.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token = $1,
			password_reset_expires = $2,
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, token, expiresAt, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*models.User, error) {
	// Single conditional update: the row must still carry this exact token
	// with an unexpired deadline. Under N concurrent callers the database
	// serializes the row update, so at most one sees RowsAffected = 1.
	query := `
		UPDATE users
		SET password = $2,
			password_reset_token = NULL,
			password_reset_expires = NULL,
			password_changed_at = NOW(),
			updated_at = NOW()
		WHERE password_reset_token = $1
		AND password_reset_expires > NOW()
		AND deleted_at IS NULL
		RETURNING` + userColumns

	user, err := scanUser(r.DB().QueryRowContext(ctx, query, token, passwordHash))
	if err == sql.ErrNoRows {
		return nil, repository.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE users
		SET password_reset_token = NULL,
			password_reset_expires = NULL,
			updated_at = NOW()
		WHERE password_reset_expires IS NOT NULL
		AND password_reset_expires <= NOW()`

	result, err := r.DB().ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password = $1,
			password_changed_at = NOW(),
			updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`

	_, err := r.DB().ExecContext(ctx, query, at, id)
	return err
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&count)
	return count, err
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET deleted_at = $1,
			password_reset_token = NULL,
			password_reset_expires = NULL,
			updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
