// Package credential orchestrates registration, login, password change and
// password reset flows over the user, history, attempt and audit stores.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
	"credcore/internal/auth"
	"credcore/internal/config"
	"credcore/internal/metrics"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// A syntactically valid bcrypt hash that matches no issued password. Login
// verifies against it when the email is unknown so the response time does
// not reveal whether the account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// RequestContext carries per-request forensic details into audit records
type RequestContext struct {
	IPAddress string
	UserAgent string
}

// Service orchestrates credential operations. Reset flows are delegated to
// the ResetLifecycle.
type Service struct {
	cfg         *config.Config
	users       repository.UserRepository
	history     repository.PasswordHistoryRepository
	attempts    repository.LoginAttemptRepository
	authService *auth.Service
	policy      auth.PasswordPolicy
	audit       auditor
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new credential service
func NewService(
	cfg *config.Config,
	users repository.UserRepository,
	history repository.PasswordHistoryRepository,
	attempts repository.LoginAttemptRepository,
	auditRepo repository.AuditEventRepository,
	authService *auth.Service,
	policy auth.PasswordPolicy,
	logger *zap.Logger,
) *Service {
	if policy == nil {
		policy = auth.DefaultPasswordPolicy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:         cfg,
		users:       users,
		history:     history,
		attempts:    attempts,
		authService: authService,
		policy:      policy,
		audit:       auditor{repo: auditRepo, logger: logger},
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register validates and creates a new user account. The password is hashed
// before the user record ever exists; plaintext is never stored.
func (s *Service) Register(ctx context.Context, email, password string, rc RequestContext) (*models.User, error) {
	email = auth.NormalizeEmail(email)
	if !auth.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", repository.ErrValidation)
	}

	if err := s.policy(password); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// First registered account gets the admin role
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	if count > 0 && !s.cfg.Auth.RegistrationOpen {
		return nil, fmt.Errorf("%w: registration is disabled", repository.ErrValidation)
	}

	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		Email:    email,
		Password: hashed,
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.record(ctx, &user.ID, models.AuditAccountCreated,
		fmt.Sprintf("Account created for %s", email), rc, map[string]interface{}{
			"role": role,
		})

	return user, nil
}

// Login authenticates a user and issues a session. Failure responses are
// identical whether the email is unknown or the password is wrong, and the
// bcrypt verification happens in both cases to keep timing uniform.
func (s *Service) Login(ctx context.Context, email, password string, rc RequestContext) (*models.LoginResponse, error) {
	email = auth.NormalizeEmail(email)
	now := s.now()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.VerifyPassword(dummyHash, password)
			if cerr := s.attempts.Create(ctx, nil, false, rc.IPAddress, now); cerr != nil {
				s.logger.Warn("record login attempt failed", zap.Error(cerr))
			}
			s.audit.record(ctx, nil, models.AuditLoginFailed,
				"Login failed: unknown email", rc, nil)
			return nil, repository.ErrInvalidPassword
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	cutoff := now.Add(-repository.LockoutDuration)
	failures, err := s.attempts.CountRecentFailures(ctx, user.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count login attempts: %w", err)
	}
	if failures >= repository.MaxLoginAttempts {
		metrics.LoginLockouts.Inc()
		s.audit.record(ctx, &user.ID, models.AuditLoginLocked,
			"Login rejected: account locked after repeated failures", rc, nil)
		return nil, repository.ErrUserLocked
	}

	if !auth.VerifyPassword(user.Password, password) {
		if cerr := s.attempts.Create(ctx, &user.ID, false, rc.IPAddress, now); cerr != nil {
			s.logger.Warn("record login attempt failed", zap.Error(cerr))
		}
		s.audit.record(ctx, &user.ID, models.AuditLoginFailed,
			"Login failed: wrong password", rc, nil)
		return nil, repository.ErrInvalidPassword
	}

	if err := s.attempts.Create(ctx, &user.ID, true, rc.IPAddress, now); err != nil {
		s.logger.Warn("record login attempt failed", zap.Error(err))
	}
	if err := s.attempts.ClearAttempts(ctx, user.ID); err != nil {
		s.logger.Warn("clear login attempts failed", zap.Error(err))
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("update last login failed", zap.Error(err))
	}

	s.audit.record(ctx, &user.ID, models.AuditLoginSuccess,
		fmt.Sprintf("User %s logged in", user.Email), rc, nil)

	return s.authService.IssueSession(ctx, user)
}

// ChangePassword updates an authenticated user's password after validating
// the current one and the reuse policy. All validation precedes any mutation.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string, rc RequestContext) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.VerifyPassword(user.Password, currentPassword) {
		return repository.ErrInvalidPassword
	}

	if err := s.policy(newPassword); err != nil {
		return err
	}

	if err := s.checkReuse(ctx, user, newPassword); err != nil {
		return err
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	s.recordHistory(ctx, user.ID, hashed, rc)

	// A changed password invalidates every outstanding session
	if err := s.authService.RevokeAllSessions(ctx, user.ID); err != nil {
		s.logger.Warn("revoke sessions failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.audit.record(ctx, &user.ID, models.AuditPasswordChanged,
		fmt.Sprintf("Password changed for %s", user.Email), rc, nil)

	return nil
}

// DeleteAccount soft-deletes the user and revokes all sessions. With erase
// set, password history and the audit trail are purged as well
// (right-to-erasure path).
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, erase bool, rc RequestContext) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	if err := s.authService.RevokeAllSessions(ctx, userID); err != nil {
		s.logger.Warn("revoke sessions failed", zap.String("user_id", userID.String()), zap.Error(err))
	}

	if erase {
		if _, err := s.history.Purge(ctx, userID); err != nil {
			s.logger.Warn("purge password history failed", zap.Error(err))
		}
		if _, err := s.audit.repo.PurgeByOwner(ctx, userID); err != nil {
			s.logger.Warn("purge audit events failed", zap.Error(err))
		}
		return nil
	}

	s.audit.record(ctx, &userID, models.AuditAccountDeleted,
		fmt.Sprintf("Account deleted for %s", user.Email), rc, nil)
	return nil
}

// checkReuse rejects a candidate password matching the current hash or any
// of the retained history entries. The history store never sees plaintext;
// the comparison happens here through the hasher.
func (s *Service) checkReuse(ctx context.Context, user *models.User, newPassword string) error {
	if auth.VerifyPassword(user.Password, newPassword) {
		return repository.ErrPasswordReuse
	}

	entries, err := s.history.Recent(ctx, user.ID, repository.PasswordHistoryKeep)
	if err != nil {
		return fmt.Errorf("load password history: %w", err)
	}
	for _, entry := range entries {
		if auth.VerifyPassword(entry.PasswordHash, newPassword) {
			return repository.ErrPasswordReuse
		}
	}
	return nil
}

// recordHistory appends the new hash to the history log and trims retention.
// History writes are order-insensitive appends; failure is logged, not fatal.
func (s *Service) recordHistory(ctx context.Context, userID uuid.UUID, hash string, rc RequestContext) {
	var ip, ua *string
	if rc.IPAddress != "" {
		ip = &rc.IPAddress
	}
	if rc.UserAgent != "" {
		ua = &rc.UserAgent
	}

	if _, err := s.history.Record(ctx, userID, hash, ip, ua); err != nil {
		s.logger.Warn("record password history failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if _, err := s.history.Trim(ctx, userID, repository.PasswordHistoryKeep); err != nil {
		s.logger.Warn("trim password history failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
