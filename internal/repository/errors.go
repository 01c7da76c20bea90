package repository

import "errors"

var (
	// Common errors
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// User errors
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrUserLocked   = errors.New("user is locked")

	// Credential errors
	ErrInvalidPassword = errors.New("invalid password")
	ErrPasswordReuse   = errors.New("password was recently used")
	ErrWeakPassword    = errors.New("password does not meet policy")

	// Reset token errors. Missing, expired, redeemed and never-valid tokens
	// are deliberately collapsed into a single error so callers cannot
	// distinguish them.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")

	// Refresh token errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)
