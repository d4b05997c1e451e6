// Package password wraps bcrypt for credential hashing. The salt and cost
// parameters travel inside the hash string, so verification needs no extra
// state.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "taskgate/pkg/domain-errors"
)

// Hash creates a bcrypt hash of the provided plaintext password.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed or
// corrupted hash verifies as false rather than erroring; callers must not be
// able to distinguish a bad password from a bad record.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
