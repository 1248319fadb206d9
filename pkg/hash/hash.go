// Package hash provides the one-way password hashing primitive used for
// stored credentials.
package hash

import (
	"golang.org/x/crypto/bcrypt"

	appErr "github.com/quillpress/engine/pkg/errors"
)

// PasswordHasher hashes plaintext passwords and verifies them against
// previously produced hashes. Salting is internal to the primitive;
// outputs are never comparable as raw strings.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

type bcryptHasher struct {
	cost int
}

// NewBcrypt returns a bcrypt-backed PasswordHasher. A cost of 0 selects
// bcrypt.DefaultCost.
func NewBcrypt(cost int) PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}
	return string(b), nil
}

func (h *bcryptHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
