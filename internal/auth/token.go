package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// ResetTokenBytes is the entropy of generated secrets: 32 bytes, well above
// the 128-bit floor for unguessable tokens.
const ResetTokenBytes = 32

// GenerateSecureToken returns a URL-safe random token of fixed length
// (43 characters for 32 input bytes). Uniqueness is probabilistic; lookups
// must tolerate zero matches.
func GenerateSecureToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
