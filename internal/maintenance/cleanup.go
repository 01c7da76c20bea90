// Package maintenance runs scheduled hygiene sweeps: stale reset tokens,
// expired refresh tokens, and retention trimming for audit, history and
// login attempt data.
package maintenance

import (
	"context"
	"time"
	"credcore/internal/config"
	"credcore/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs periodic cleanup jobs
type Sweeper struct {
	cfg      *config.Config
	users    repository.UserRepository
	history  repository.PasswordHistoryRepository
	audit    repository.AuditEventRepository
	tokens   repository.RefreshTokenRepository
	attempts repository.LoginAttemptRepository
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewSweeper creates a new maintenance sweeper
func NewSweeper(
	cfg *config.Config,
	users repository.UserRepository,
	history repository.PasswordHistoryRepository,
	audit repository.AuditEventRepository,
	tokens repository.RefreshTokenRepository,
	attempts repository.LoginAttemptRepository,
	logger *zap.Logger,
) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cfg:      cfg,
		users:    users,
		history:  history,
		audit:    audit,
		tokens:   tokens,
		attempts: attempts,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the sweep and begins running it
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Retention.CleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Run(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Run executes one sweep. Each job is independent; one failing does not
// stop the others.
func (s *Sweeper) Run(ctx context.Context) {
	if n, err := s.users.ClearExpiredResetTokens(ctx); err != nil {
		s.logger.Warn("clear expired reset tokens failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("cleared expired reset tokens", zap.Int64("count", n))
	}

	if n, err := s.tokens.DeleteExpired(ctx); err != nil {
		s.logger.Warn("delete expired refresh tokens failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("deleted expired refresh tokens", zap.Int64("count", n))
	}

	cutoff := time.Now().Add(-s.cfg.Retention.AuditEvents)
	if n, err := s.audit.PurgeOlderThan(ctx, cutoff); err != nil {
		s.logger.Warn("purge old audit events failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("purged old audit events", zap.Int64("count", n))
	}

	if n, err := s.history.CleanupOld(ctx, s.cfg.Retention.PasswordHistory); err != nil {
		s.logger.Warn("cleanup old password history failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("cleaned up old password history", zap.Int64("count", n))
	}

	if n, err := s.attempts.CleanupOld(ctx, s.cfg.Retention.LoginAttempts); err != nil {
		s.logger.Warn("cleanup old login attempts failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("cleaned up old login attempts", zap.Int64("count", n))
	}
}
