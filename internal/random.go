package internal

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// NewSessionID returns a random (version 4) UUID in canonical form.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return id.String(), nil
}

// ValidSessionID reports whether s is a canonical UUID.
func ValidSessionID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NewSecret returns n bytes from crypto/rand.
func NewSecret(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("secret size must be > 0")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
