package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
	"credcore/internal/auth"
	"credcore/internal/config"
	"credcore/internal/email"
	"credcore/internal/metrics"
	"credcore/internal/models"
	"credcore/internal/ratelimit"
	"credcore/internal/repository"

	"go.uber.org/zap"
)

const resetAction = "password_reset"

// ResetLifecycle issues, verifies and redeems password reset tokens. A token
// lives on the user record itself; issuing overwrites any prior token, and
// redemption clears it in the same conditional update that sets the new
// password hash, so at most one concurrent completion can win.
type ResetLifecycle struct {
	cfg         *config.Config
	users       repository.UserRepository
	history     repository.PasswordHistoryRepository
	authService *auth.Service
	policy      auth.PasswordPolicy
	limiter     ratelimit.Limiter
	mailer      email.EmailSender
	audit       auditor
	logger      *zap.Logger
	now         func() time.Time
}

// NewResetLifecycle creates a new reset token lifecycle manager
func NewResetLifecycle(
	cfg *config.Config,
	users repository.UserRepository,
	history repository.PasswordHistoryRepository,
	auditRepo repository.AuditEventRepository,
	authService *auth.Service,
	policy auth.PasswordPolicy,
	limiter ratelimit.Limiter,
	mailer email.EmailSender,
	logger *zap.Logger,
) *ResetLifecycle {
	if policy == nil {
		policy = auth.DefaultPasswordPolicy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResetLifecycle{
		cfg:         cfg,
		users:       users,
		history:     history,
		authService: authService,
		policy:      policy,
		limiter:     limiter,
		mailer:      mailer,
		audit:       auditor{repo: auditRepo, logger: logger},
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (l *ResetLifecycle) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// RequestReset starts a password reset for the given email. Apart from rate
// limiting, the outcome is identical whether or not the email belongs to an
// account: the caller learns nothing, and the work done is near-constant.
func (l *ResetLifecycle) RequestReset(ctx context.Context, emailAddr string, rc RequestContext) error {
	emailAddr = auth.NormalizeEmail(emailAddr)

	// Throttled per email, not per IP, so the quota bounds how often the
	// "reset email sent" response can be triggered for any one account.
	res, err := l.limiter.Consume(ctx, emailAddr, resetAction)
	if err != nil {
		if l.cfg.RateLimit.FailOpen {
			l.logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
		} else {
			return fmt.Errorf("rate limiter unavailable: %w", err)
		}
	} else if !res.Allowed {
		metrics.RateLimitRejections.WithLabelValues(resetAction).Inc()
		return &ratelimit.Error{Action: resetAction, RetryAfter: res.RetryAfter}
	}

	// The token is generated before the lookup so the request costs the
	// same whether or not the account exists.
	token, err := auth.GenerateSecureToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	user, err := l.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	expiresAt := l.now().Add(l.cfg.Reset.TokenTTL)

	// Overwrite: a previously issued token is superseded the moment the new
	// pair lands on the row.
	if err := l.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	l.audit.record(ctx, &user.ID, models.AuditPasswordResetRequested,
		fmt.Sprintf("Password reset requested for %s", user.Email), rc, map[string]interface{}{
			"expires_at": expiresAt,
		})

	if l.mailer != nil {
		if err := l.mailer.SendPasswordResetEmail(user.Email, token); err != nil {
			// Failing the request here would reveal that the email exists.
			l.logger.Error("send password reset email failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	return nil
}

// VerifyToken reports whether a reset token is currently redeemable and, if
// so, for which email. Unknown, expired and already-redeemed tokens are
// indistinguishable.
func (l *ResetLifecycle) VerifyToken(ctx context.Context, token string) (*models.VerifyTokenResponse, error) {
	if token == "" {
		return &models.VerifyTokenResponse{Valid: false, Message: "Invalid or expired reset token"}, nil
	}

	user, err := l.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenInvalid) {
			return &models.VerifyTokenResponse{Valid: false, Message: "Invalid or expired reset token"}, nil
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}

	return &models.VerifyTokenResponse{Valid: true, Email: user.Email}, nil
}

// CompleteReset redeems a token and sets the new password. Validation and
// the reuse check run before any mutation; the redemption itself is a single
// conditional update, so of N concurrent calls with the same token exactly
// one wins and the rest observe ErrResetTokenInvalid.
func (l *ResetLifecycle) CompleteReset(ctx context.Context, token, newPassword string, rc RequestContext) (*models.LoginResponse, error) {
	if token == "" {
		return nil, repository.ErrResetTokenInvalid
	}

	user, err := l.users.GetByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := l.policy(newPassword); err != nil {
		return nil, err
	}

	if auth.VerifyPassword(user.Password, newPassword) {
		return nil, repository.ErrPasswordReuse
	}

	entries, err := l.history.Recent(ctx, user.ID, repository.PasswordHistoryKeep)
	if err != nil {
		return nil, fmt.Errorf("load password history: %w", err)
	}
	for _, entry := range entries {
		if auth.VerifyPassword(entry.PasswordHash, newPassword) {
			return nil, repository.ErrPasswordReuse
		}
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// The winner takes the row; everyone else gets ErrResetTokenInvalid.
	winner, err := l.users.ConsumeResetToken(ctx, token, hashed)
	if err != nil {
		return nil, err
	}

	var ip, ua *string
	if rc.IPAddress != "" {
		ip = &rc.IPAddress
	}
	if rc.UserAgent != "" {
		ua = &rc.UserAgent
	}
	if _, err := l.history.Record(ctx, winner.ID, hashed, ip, ua); err != nil {
		l.logger.Warn("record password history failed",
			zap.String("user_id", winner.ID.String()), zap.Error(err))
	} else if _, err := l.history.Trim(ctx, winner.ID, repository.PasswordHistoryKeep); err != nil {
		l.logger.Warn("trim password history failed",
			zap.String("user_id", winner.ID.String()), zap.Error(err))
	}

	// Old sessions die with the old password
	if err := l.authService.RevokeAllSessions(ctx, winner.ID); err != nil {
		l.logger.Warn("revoke sessions failed",
			zap.String("user_id", winner.ID.String()), zap.Error(err))
	}

	l.audit.record(ctx, &winner.ID, models.AuditPasswordResetCompleted,
		fmt.Sprintf("Password reset completed for %s", winner.Email), rc, nil)

	return l.authService.IssueSession(ctx, winner)
}

// SweepExpired nulls out stale token pairs. Expiry is already enforced at
// read time; this keeps the table tidy.
func (l *ResetLifecycle) SweepExpired(ctx context.Context) (int64, error) {
	return l.users.ClearExpiredResetTokens(ctx)
}
