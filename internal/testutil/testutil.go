// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"credcore/internal/auth"
	"credcore/internal/config"
	"credcore/internal/models"
	"credcore/internal/repository"
	"credcore/internal/repository/postgres"
	"credcore/internal/testutil/db"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// LoadTestConfig loads the test configuration
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return db.LoadTestConfig(t)
}

// TestContext holds common test dependencies
type TestContext struct {
	T                   *testing.T
	DB                  *sql.DB
	Config              *config.Config
	UserRepo            repository.UserRepository
	PasswordHistoryRepo repository.PasswordHistoryRepository
	LoginAttemptRepo    repository.LoginAttemptRepository
	AuditRepo           repository.AuditEventRepository
	RefreshTokenRepo    repository.RefreshTokenRepository
	AuthService         *auth.Service
}

// MockEmailService records sent reset emails instead of delivering them
type MockEmailService struct {
	SentTo     []string
	SentTokens []string
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (s *MockEmailService) SendPasswordResetEmail(to, token string) error {
	s.SentTo = append(s.SentTo, to)
	s.SentTokens = append(s.SentTokens, token)
	return nil
}

// NewTestContext creates a new test context with all dependencies
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Initialize validators
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("nospaces", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return strings.TrimSpace(value) != ""
		})
		if err != nil {
			t.Fatal("Failed to register validator:", err)
		}
	}

	// Load test config (skips the test without a database)
	cfg := LoadTestConfig(t)

	// Setup test database
	testDB := db.SetupTestDB(t, &cfg.Database)

	refreshTokenRepo := postgres.NewRefreshTokenRepository(testDB)

	tc := &TestContext{
		T:                   t,
		DB:                  testDB,
		Config:              cfg,
		UserRepo:            postgres.NewUserRepository(testDB),
		PasswordHistoryRepo: postgres.NewPasswordHistoryRepository(testDB),
		LoginAttemptRepo:    postgres.NewLoginAttemptRepository(testDB),
		AuditRepo:           postgres.NewAuditEventRepository(testDB),
		RefreshTokenRepo:    refreshTokenRepo,
		AuthService:         auth.NewService(cfg, refreshTokenRepo),
	}

	t.Cleanup(func() {
		tc.cleanup()
	})

	return tc
}

// cleanup performs necessary cleanup after tests
func (tc *TestContext) cleanup() {
	if tc.DB != nil {
		if err := db.CleanupTestDB(tc.DB); err != nil {
			tc.T.Errorf("Failed to cleanup test database: %v", err)
		}
		tc.DB.Close()
	}
}

// CreateTestUser creates a test user with the given details and returns the created user
func (tc *TestContext) CreateTestUser(email, password string, admin bool) *models.User {
	tc.T.Helper()

	role := models.RoleUser
	if admin {
		role = models.RoleAdmin
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), auth.BcryptCost)
	require.NoError(tc.T, err, "Failed to hash password")

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}

	err = tc.UserRepo.Create(context.Background(), user)
	require.NoError(tc.T, err, "Failed to create test user")

	return user
}

// GetTestJWT generates a JWT token for testing
func (tc *TestContext) GetTestJWT(userID uuid.UUID) string {
	user, err := tc.UserRepo.GetByID(context.Background(), userID)
	require.NoError(tc.T, err, "Failed to get user")

	token, err := tc.AuthService.GenerateToken(user)
	require.NoError(tc.T, err, "Failed to generate test JWT")
	return token
}
