package credential

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"
	"credcore/internal/auth"
	"credcore/internal/config"
	"credcore/internal/models"
	"credcore/internal/ratelimit"
	"credcore/internal/repository"

	"github.com/google/uuid"
)

// stubBase satisfies the embedded Repository interface for in-memory stores
type stubBase struct{}

func (stubBase) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (stubBase) DB() *sql.DB { return nil }

type stubUserRepo struct {
	stubBase
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	now   func() time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users: make(map[uuid.UUID]*models.User),
		now:   time.Now,
	}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email && existing.DeletedAt == nil {
			return repository.ErrEmailExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) && user.DeletedAt == nil {
			return copyUser(user), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *stubUserRepo) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == token &&
			user.PasswordResetExpires.After(r.now()) && user.DeletedAt == nil {
			return copyUser(user), nil
		}
	}
	return nil, repository.ErrResetTokenInvalid
}

func (r *stubUserRepo) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordResetToken = &token
	user.PasswordResetExpires = &expiresAt
	return nil
}

func (r *stubUserRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == token &&
			user.PasswordResetExpires.After(r.now()) && user.DeletedAt == nil {
			now := r.now()
			user.Password = passwordHash
			user.PasswordResetToken = nil
			user.PasswordResetExpires = nil
			user.PasswordChangedAt = &now
			return copyUser(user), nil
		}
	}
	return nil, repository.ErrResetTokenInvalid
}

func (r *stubUserRepo) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cleared int64
	for _, user := range r.users {
		if user.PasswordResetExpires != nil && !user.PasswordResetExpires.After(r.now()) {
			user.PasswordResetToken = nil
			user.PasswordResetExpires = nil
			cleared++
		}
	}
	return cleared, nil
}

func (r *stubUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := r.now()
	user.Password = passwordHash
	user.PasswordChangedAt = &now
	return nil
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &at
	return nil
}

func (r *stubUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, user := range r.users {
		if user.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *stubUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return repository.ErrUserNotFound
	}
	now := r.now()
	user.DeletedAt = &now
	return nil
}

type stubHistoryRepo struct {
	stubBase
	mu      sync.Mutex
	entries map[uuid.UUID][]models.PasswordHistory
}

func newStubHistoryRepo() *stubHistoryRepo {
	return &stubHistoryRepo{entries: make(map[uuid.UUID][]models.PasswordHistory)}
}

func (r *stubHistoryRepo) Record(ctx context.Context, userID uuid.UUID, passwordHash string, ipAddress, userAgent *string) (*models.PasswordHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID == uuid.Nil || passwordHash == "" {
		return nil, repository.ErrValidation
	}
	entry := models.PasswordHistory{
		ID:           uuid.New(),
		UserID:       userID,
		PasswordHash: passwordHash,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    time.Now(),
	}
	// Prepend: newest first
	r.entries[userID] = append([]models.PasswordHistory{entry}, r.entries[userID]...)
	return &entry, nil
}

func (r *stubHistoryRepo) Recent(ctx context.Context, userID uuid.UUID, count int) ([]models.PasswordHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if count <= 0 {
		return nil, repository.ErrValidation
	}
	entries := r.entries[userID]
	if len(entries) > count {
		entries = entries[:count]
	}
	out := make([]models.PasswordHistory, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *stubHistoryRepo) Trim(ctx context.Context, userID uuid.UUID, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries[userID]
	if len(entries) <= keep {
		return 0, nil
	}
	removed := int64(len(entries) - keep)
	r.entries[userID] = entries[:keep]
	return removed, nil
}

func (r *stubHistoryRepo) Purge(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := int64(len(r.entries[userID]))
	delete(r.entries, userID)
	return removed, nil
}

func (r *stubHistoryRepo) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (r *stubHistoryRepo) count(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[userID])
}

type loginAttempt struct {
	userID     *uuid.UUID
	successful bool
	createdAt  time.Time
}

type stubAttemptRepo struct {
	stubBase
	mu       sync.Mutex
	attempts []loginAttempt
}

func newStubAttemptRepo() *stubAttemptRepo {
	return &stubAttemptRepo{}
}

func (r *stubAttemptRepo) Create(ctx context.Context, userID *uuid.UUID, successful bool, ipAddress string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, loginAttempt{userID: userID, successful: successful, createdAt: createdAt})
	return nil
}

func (r *stubAttemptRepo) CountRecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, a := range r.attempts {
		if a.userID != nil && *a.userID == userID && !a.successful && a.createdAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (r *stubAttemptRepo) ClearAttempts(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[:0]
	for _, a := range r.attempts {
		if a.userID == nil || *a.userID != userID {
			kept = append(kept, a)
		}
	}
	r.attempts = kept
	return nil
}

func (r *stubAttemptRepo) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type stubAuditRepo struct {
	stubBase
	mu     sync.Mutex
	events []models.AuditEvent
	fail   bool
}

func newStubAuditRepo() *stubAuditRepo {
	return &stubAuditRepo{}
}

func (r *stubAuditRepo) Record(ctx context.Context, req *models.CreateAuditEventRequest) (*models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail {
		return nil, sql.ErrConnDone
	}
	event := models.AuditEvent{
		ID:              uuid.New(),
		OwnerID:         req.OwnerID,
		EventType:       req.EventType,
		Description:     req.Description,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
		Metadata:        req.Metadata,
		IsSecurityEvent: req.IsSecurityEvent,
		CreatedAt:       time.Now(),
	}
	r.events = append(r.events, event)
	return &event, nil
}

func (r *stubAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.events {
		if r.events[i].ID == id {
			return &r.events[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAuditRepo) List(ctx context.Context, filter repository.AuditEventFilter) ([]models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *stubAuditRepo) ByOwner(ctx context.Context, ownerID uuid.UUID, limit *int) ([]models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.AuditEvent
	for _, e := range r.events {
		if e.OwnerID != nil && *e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) ByEventType(ctx context.Context, eventType models.AuditEventType, limit *int) ([]models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.AuditEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) ByIPAddress(ctx context.Context, ipAddress string, limit *int) ([]models.AuditEvent, error) {
	return nil, nil
}

func (r *stubAuditRepo) SecurityEvents(ctx context.Context, limit *int) ([]models.AuditEvent, error) {
	return nil, nil
}

func (r *stubAuditRepo) RecentSince(ctx context.Context, since time.Time, limit *int) ([]models.AuditEvent, error) {
	return nil, nil
}

func (r *stubAuditRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *stubAuditRepo) PurgeByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var removed int64
	for _, e := range r.events {
		if e.OwnerID != nil && *e.OwnerID == ownerID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return removed, nil
}

type stubRefreshRepo struct {
	stubBase
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func newStubRefreshRepo() *stubRefreshRepo {
	return &stubRefreshRepo{tokens: make(map[string]models.RefreshToken)}
}

func (r *stubRefreshRepo) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *stubRefreshRepo) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	if rt.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrTokenExpired
	}
	return &rt, nil
}

func (r *stubRefreshRepo) DeleteByToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *stubRefreshRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, rt := range r.tokens {
		if rt.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

func (r *stubRefreshRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (r *stubRefreshRepo) countForUser(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rt := range r.tokens {
		if rt.UserID == userID {
			count++
		}
	}
	return count
}

// fixture bundles a service, a reset lifecycle and their backing stubs
type fixture struct {
	cfg      *config.Config
	users    *stubUserRepo
	history  *stubHistoryRepo
	attempts *stubAttemptRepo
	audit    *stubAuditRepo
	refresh  *stubRefreshRepo
	limiter  *ratelimit.MemoryLimiter
	service  *Service
	reset    *ResetLifecycle
}

type stubMailer struct {
	mu     sync.Mutex
	sentTo []string
	tokens []string
	err    error
}

func (m *stubMailer) SendPasswordResetEmail(to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sentTo = append(m.sentTo, to)
	m.tokens = append(m.tokens, token)
	return nil
}

func newFixture(t *testing.T) (*fixture, *stubMailer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenDuration = 15 * time.Minute
	cfg.Auth.RefreshTokenDuration = 24 * time.Hour
	cfg.Auth.RegistrationOpen = true
	cfg.Reset.TokenTTL = time.Hour
	cfg.Reset.MaxRequests = 3
	cfg.Reset.RequestWindow = time.Hour

	users := newStubUserRepo()
	history := newStubHistoryRepo()
	attempts := newStubAttemptRepo()
	audit := newStubAuditRepo()
	refresh := newStubRefreshRepo()
	limiter := ratelimit.NewMemoryLimiter(cfg.Reset.MaxRequests, cfg.Reset.RequestWindow)

	authService := auth.NewService(cfg, refresh)
	mailer := &stubMailer{}

	f := &fixture{
		cfg:      cfg,
		users:    users,
		history:  history,
		attempts: attempts,
		audit:    audit,
		refresh:  refresh,
		limiter:  limiter,
		service: NewService(cfg, users, history, attempts, audit,
			authService, auth.DefaultPasswordPolicy, nil),
		reset: NewResetLifecycle(cfg, users, history, audit,
			authService, auth.DefaultPasswordPolicy, limiter, mailer, nil),
	}
	t.Cleanup(limiter.Close)
	return f, mailer
}

func (f *fixture) lastEventType() models.AuditEventType {
	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	if len(f.audit.events) == 0 {
		return ""
	}
	return f.audit.events[len(f.audit.events)-1].EventType
}
