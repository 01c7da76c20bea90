package auth

import "golang.org/x/crypto/bcrypt"

// BcryptCost is the work factor applied to every new hash. Bump it here when
// hardware catches up; existing hashes keep verifying because the cost is
// embedded in the hash itself.
const BcryptCost = 10

// HashPassword hashes a password using bcrypt. The output embeds algorithm,
// cost and salt, so the same input produces a different hash on every call.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// VerifyPassword compares a stored hash with a plaintext candidate in
// constant time. A mismatch or a structurally invalid hash both return
// false; no error detail leaks to the caller.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
