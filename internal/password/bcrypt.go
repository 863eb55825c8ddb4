package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultBcryptCost = 12
	bcryptMaxInput    = 72
)

// ErrPasswordTooLong is returned by hashers with a bounded input size.
var ErrPasswordTooLong = errors.New("password exceeds hasher input limit")

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

var _ Hasher = (*BcryptHasher)(nil)

// NewBcryptHasher clamps cost into bcrypt's accepted range. Zero means default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = defaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash creates a bcrypt hash; bcrypt embeds its own random salt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > bcryptMaxInput {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// Verify checks a password against a bcrypt hash.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}
