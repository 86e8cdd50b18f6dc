package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the work factor the user table was seeded with.
const bcryptCost = 10

// HashPassword returns the bcrypt hash of plaintext. The salt is generated
// per call, so two hashes of the same password differ.
func HashPassword(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether plaintext matches hash. Any failure,
// including a malformed hash, reads as a mismatch rather than an error.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
