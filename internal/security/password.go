package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 10

// PasswordHasher wraps bcrypt with an injectable work factor so tests can
// run at bcrypt.MinCost without touching the verification logic.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a self-contained bcrypt digest (salt and cost embedded).
// bcrypt silently truncates inputs beyond 72 bytes, so longer passwords are
// rejected outright.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("password must be 72 bytes or fewer")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. The comparison
// is constant-time inside bcrypt.
func (h *PasswordHasher) Verify(digest, plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	return !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) && err == nil
}
