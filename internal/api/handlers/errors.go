package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"credcore/internal/ratelimit"
	"credcore/internal/repository"

	"github.com/gin-gonic/gin"
	"credcore/internal/models"
)

// respondError maps domain errors onto HTTP responses. Enumeration-sensitive
// failures have already been collapsed by the credential core; this mapping
// only decides status codes and stable messages.
func respondError(c *gin.Context, err error) {
	var rlErr *ratelimit.Error
	if errors.As(err, &rlErr) {
		c.Header("Retry-After", fmt.Sprintf("%d", int(rlErr.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "too many requests"})
		return
	}

	switch {
	case errors.Is(err, repository.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, repository.ErrUserLocked):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "too many failed login attempts"})
	case errors.Is(err, repository.ErrResetTokenInvalid):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid or expired reset token"})
	case errors.Is(err, repository.ErrPasswordReuse):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "cannot reuse recent passwords"})
	case errors.Is(err, repository.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already exists"})
	case errors.Is(err, repository.ErrValidation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found"})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
	}
}
