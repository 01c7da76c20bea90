package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"credcore/internal/api/middleware"
	"credcore/internal/auth"
	"credcore/internal/credential"
	"credcore/internal/models"
	"credcore/internal/ratelimit"
	"credcore/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAuthRouter wires the full auth surface against a real database.
// Tests relying on it are skipped when no test database is configured.
func setupAuthRouter(t *testing.T) (*gin.Engine, *testutil.TestContext, *testutil.MockEmailService) {
	t.Helper()

	tc := testutil.NewTestContext(t)
	mailer := testutil.NewMockEmailService()

	limiter := ratelimit.NewMemoryLimiter(tc.Config.Reset.MaxRequests, tc.Config.Reset.RequestWindow)
	t.Cleanup(limiter.Close)

	credService := credential.NewService(
		tc.Config, tc.UserRepo, tc.PasswordHistoryRepo, tc.LoginAttemptRepo,
		tc.AuditRepo, tc.AuthService, auth.DefaultPasswordPolicy, nil)
	resetLifecycle := credential.NewResetLifecycle(
		tc.Config, tc.UserRepo, tc.PasswordHistoryRepo, tc.AuditRepo,
		tc.AuthService, auth.DefaultPasswordPolicy, limiter, mailer, nil)

	authMiddleware := middleware.NewAuthMiddleware(tc.AuthService, tc.UserRepo)
	handler := NewAuthHandler(credService, resetLifecycle, tc.AuthService, tc.UserRepo)

	r := gin.New()
	authRoutes := r.Group("/api/v1/auth")
	{
		authRoutes.POST("/register", handler.Register)
		authRoutes.POST("/login", handler.Login)
		authRoutes.POST("/refresh", handler.Refresh)
		authRoutes.POST("/reset-password", handler.RequestPasswordReset)
		authRoutes.GET("/reset-password/verify/:token", handler.VerifyResetToken)
		authRoutes.POST("/reset-password/complete", handler.CompletePasswordReset)
		authRoutes.POST("/change-password", authMiddleware.AuthRequired(), handler.ChangePassword)
		authRoutes.DELETE("/account", authMiddleware.AuthRequired(), handler.DeleteAccount)
	}
	return r, tc, mailer
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompletePasswordResetMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// The mismatch is rejected before the lifecycle is touched, so a handler
	// with no backing services must still answer 400.
	handler := NewAuthHandler(nil, nil, nil, nil)
	r := gin.New()
	r.POST("/complete", handler.CompletePasswordReset)

	w := postJSON(r, "/complete", models.CompleteResetRequest{
		Token:           "some-token",
		Password:        "a fresh new password",
		ConfirmPassword: "a different password",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "do not match")
}

func TestRegisterBindingErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewAuthHandler(nil, nil, nil, nil)
	r := gin.New()
	r.POST("/register", handler.Register)

	tests := []struct {
		name string
		body models.RegisterRequest
	}{
		{"missing email", models.RegisterRequest{Password: "a valid password 1"}},
		{"bad email", models.RegisterRequest{Email: "nope", Password: "a valid password 1"}},
		{"short password", models.RegisterRequest{Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPasswordResetFlow(t *testing.T) {
	r, _, mailer := setupAuthRouter(t)

	// Register and log in
	w := postJSON(r, "/api/v1/auth/register", models.RegisterRequest{
		Email: "flow@example.com", Password: "the original password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "flow@example.com", Password: "the original password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Request a reset; the response shape is the generic success message
	w = postJSON(r, "/api/v1/auth/reset-password", models.PasswordResetRequest{Email: "flow@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "if the email exists")
	require.Len(t, mailer.SentTokens, 1)
	token := mailer.SentTokens[0]

	// The token verifies
	w = getPath(r, "/api/v1/auth/reset-password/verify/"+token)
	require.Equal(t, http.StatusOK, w.Code)
	var verify models.VerifyTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verify))
	assert.True(t, verify.Valid)
	assert.Equal(t, "flow@example.com", verify.Email)

	// A confirm mismatch is rejected and leaves the token alive
	w = postJSON(r, "/api/v1/auth/reset-password/complete", models.CompleteResetRequest{
		Token: token, Password: "a fresh new password", ConfirmPassword: "something else here",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = getPath(r, "/api/v1/auth/reset-password/verify/"+token)
	require.Equal(t, http.StatusOK, w.Code)

	// Completion succeeds and returns a session
	w = postJSON(r, "/api/v1/auth/reset-password/complete", models.CompleteResetRequest{
		Token: token, Password: "a fresh new password", ConfirmPassword: "a fresh new password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var complete models.CompleteResetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &complete))
	assert.NotEmpty(t, complete.AccessToken)
	assert.NotEmpty(t, complete.RefreshToken)

	// The token is spent
	w = getPath(r, "/api/v1/auth/reset-password/verify/"+token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = postJSON(r, "/api/v1/auth/reset-password/complete", models.CompleteResetRequest{
		Token: token, Password: "one more password", ConfirmPassword: "one more password",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Old password dead, new one works
	w = postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "flow@example.com", Password: "the original password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "flow@example.com", Password: "a fresh new password",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPasswordResetEnumeration(t *testing.T) {
	r, _, mailer := setupAuthRouter(t)

	w := postJSON(r, "/api/v1/auth/register", models.RegisterRequest{
		Email: "known@example.com", Password: "the original password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	known := postJSON(r, "/api/v1/auth/reset-password", models.PasswordResetRequest{Email: "known@example.com"})
	unknown := postJSON(r, "/api/v1/auth/reset-password", models.PasswordResetRequest{Email: "unknown@example.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Len(t, mailer.SentTo, 1)
}

func TestPasswordResetQuota(t *testing.T) {
	r, tc, _ := setupAuthRouter(t)

	tc.CreateTestUser("quota@example.com", "the original password", false)

	for i := 0; i < tc.Config.Reset.MaxRequests; i++ {
		w := postJSON(r, "/api/v1/auth/reset-password", models.PasswordResetRequest{Email: "quota@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(r, "/api/v1/auth/reset-password", models.PasswordResetRequest{Email: "quota@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLoginLockoutFlow(t *testing.T) {
	r, tc, _ := setupAuthRouter(t)

	tc.CreateTestUser("lockout@example.com", "the original password", false)

	for i := 0; i < 5; i++ {
		w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
			Email: "lockout@example.com", Password: "not the password",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Correct credentials are rejected while locked
	w := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "lockout@example.com", Password: "the original password",
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many failed login attempts")
}

func TestChangePasswordFlow(t *testing.T) {
	r, tc, _ := setupAuthRouter(t)

	user := tc.CreateTestUser("change@example.com", "the original password", false)
	jwt := tc.GetTestJWT(user.ID)

	body, _ := json.Marshal(models.ChangePasswordRequest{
		CurrentPassword: "the original password",
		NewPassword:     "a better password now",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", jwt))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// New password logs in, old one does not
	lw := postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "change@example.com", Password: "a better password now",
	})
	assert.Equal(t, http.StatusOK, lw.Code)
	lw = postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "change@example.com", Password: "the original password",
	})
	assert.Equal(t, http.StatusUnauthorized, lw.Code)
}

func TestRefreshFlow(t *testing.T) {
	r, _, _ := setupAuthRouter(t)

	w := postJSON(r, "/api/v1/auth/register", models.RegisterRequest{
		Email: "refresh@example.com", Password: "the original password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/api/v1/auth/login", models.LoginRequest{
		Email: "refresh@example.com", Password: "the original password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var session models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	w = postJSON(r, "/api/v1/auth/refresh", models.TokenRefreshRequest{RefreshToken: session.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	var rotated models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rotated))
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// Rotation killed the old refresh token
	w = postJSON(r, "/api/v1/auth/refresh", models.TokenRefreshRequest{RefreshToken: session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
