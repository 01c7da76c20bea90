package auth

import (
	"net/mail"
	"strings"
)

// IsValidEmail checks if the provided email address is valid
func IsValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// NormalizeEmail trims whitespace and case-folds an email address. All
// storage and lookups use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
