package handlers

import (
	"errors"
	"net/http"
	"credcore/internal/auth"
	"credcore/internal/credential"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles HTTP requests for authentication, password change and
// password reset
type AuthHandler struct {
	creds       *credential.Service
	reset       *credential.ResetLifecycle
	authService *auth.Service
	userRepo    repository.UserRepository
}

// NewAuthHandler creates a new authentication handler with the given dependencies
func NewAuthHandler(
	creds *credential.Service,
	reset *credential.ResetLifecycle,
	authService *auth.Service,
	userRepo repository.UserRepository,
) *AuthHandler {
	return &AuthHandler{
		creds:       creds,
		reset:       reset,
		authService: authService,
		userRepo:    userRepo,
	}
}

func requestContext(c *gin.Context) credential.RequestContext {
	return credential.RequestContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// Register godoc
// @Summary Register new user
// @Description Register a new user account. First user gets the admin role.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.User "User created successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid email or weak password"
// @Failure 409 {object} models.ErrorResponse "Email already exists"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.creds.Register(c.Request.Context(), req.Email, req.Password, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 429 {object} models.ErrorResponse "Account locked or rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.creds.Login(c.Request.Context(), req.Email, req.Password, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a refresh token for a new access/refresh token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.TokenRefreshRequest true "Refresh token"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired refresh token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	userID, err := h.authService.ValidateRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	accessToken, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to generate access token"})
		return
	}

	refreshToken, err := h.authService.RotateRefreshToken(c.Request.Context(), req.RefreshToken, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to rotate refresh token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// RequestPasswordReset godoc
// @Summary Request password reset
// @Description Request a password reset email. Always returns the same response whether or not the email exists; only the per-email quota produces a different status.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordResetRequest true "User's email"
// @Success 200 {object} models.SuccessResponse "Reset link will be sent if email exists"
// @Failure 400 {object} models.ErrorResponse "Invalid email format"
// @Failure 429 {object} models.ErrorResponse "Too many requests"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email, requestContext(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the email exists, a reset link will be sent"})
}

// VerifyResetToken godoc
// @Summary Verify password reset token
// @Description Check whether a reset token is valid and unexpired
// @Tags auth
// @Produce json
// @Param token path string true "Reset token"
// @Success 200 {object} models.VerifyTokenResponse "Token is valid"
// @Failure 400 {object} models.VerifyTokenResponse "Invalid or expired reset token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password/verify/{token} [get]
func (h *AuthHandler) VerifyResetToken(c *gin.Context) {
	result, err := h.reset.VerifyToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Valid {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompletePasswordReset godoc
// @Summary Complete password reset
// @Description Redeem a reset token and set a new password. Returns fresh session credentials.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.CompleteResetRequest true "Reset completion details"
// @Success 200 {object} models.CompleteResetResponse "Password reset successfully"
// @Failure 400 {object} models.ErrorResponse "Password mismatch, invalid token, weak or reused password"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password/complete [post]
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req models.CompleteResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	// Checked before anything touches the token, so a mismatch leaves the
	// token valid for a corrected retry.
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "passwords do not match"})
		return
	}

	session, err := h.reset.CompleteReset(c.Request.Context(), req.Token, req.Password, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CompleteResetResponse{
		Message:      "password reset successfully",
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the authenticated user's password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest true "Password change details"
// @Success 200 {object} models.SuccessResponse "Password changed"
// @Failure 400 {object} models.ErrorResponse "Weak or reused password"
// @Failure 401 {object} models.ErrorResponse "Wrong current password"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	err := h.creds.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password changed successfully"})
}

// DeleteAccount godoc
// @Summary Delete account
// @Description Soft-delete the authenticated user's account. With erase=true, password history and audit trail are purged as well.
// @Tags auth
// @Produce json
// @Param erase query bool false "Erase history and audit trail"
// @Success 200 {object} models.SuccessResponse "Account deleted"
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/account [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	erase := c.Query("erase") == "true"
	if err := h.creds.DeleteAccount(c.Request.Context(), user.ID, erase, requestContext(c)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "account deleted"})
}
