package auth

import (
	"fmt"
	"strings"
	"unicode"
	"credcore/internal/repository"
)

// PasswordPolicy decides whether a candidate password is acceptable.
// Implementations return an error wrapping repository.ErrWeakPassword so
// callers can match the class without parsing the message.
type PasswordPolicy func(password string) error

// MinPasswordLength is the floor enforced by the default policy.
const MinPasswordLength = 8

// Passwords matching these exactly (case-insensitive) are rejected outright.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"12345678":   {},
	"123456789":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"princess":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
	"admin123":   {},
	"letmein1":   {},
}

// DefaultPasswordPolicy rejects short, purely alphabetic, and well-known
// dictionary passwords.
func DefaultPasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", repository.ErrWeakPassword, MinPasswordLength)
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return fmt.Errorf("%w: too common", repository.ErrWeakPassword)
	}

	alphaOnly := true
	for _, r := range password {
		if !unicode.IsLetter(r) {
			alphaOnly = false
			break
		}
	}
	if alphaOnly {
		return fmt.Errorf("%w: must contain a non-letter character", repository.ErrWeakPassword)
	}

	return nil
}
