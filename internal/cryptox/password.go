// Package cryptox holds the credential primitives of the service: bcrypt
// password hashing and the reversible codec for email verification tokens.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinBcryptCost     = 4
	MaxBcryptCost     = 14
	DefaultBcryptCost = bcrypt.DefaultCost
)

// BcryptHasher hashes and checks passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or DefaultBcryptCost when cost
// is outside [MinBcryptCost, MaxBcryptCost].
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of plain. Empty input is rejected.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password is empty: %w", common.ErrorBadRequest)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("password too long: %w", common.ErrorBadRequest)
		}
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Matches reports whether plain is the password behind hash.
func (h *BcryptHasher) Matches(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
