// Package password hashes and verifies account passwords.
package password

import (
	"errors"
	"fmt"
	"strings"
)

// Supported algorithm names.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// ErrInvalidHash is returned when a stored hash cannot be decoded.
var ErrInvalidHash = errors.New("invalid password hash")

// Hasher produces and checks one-way password hashes.
//
// Verify returns (false, nil) on mismatch; an error means the stored hash
// itself is unusable.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// Options tunes the cost parameters of the available algorithms.
type Options struct {
	Argon2     Argon2Params
	BcryptCost int
}

// New returns the hasher for the named algorithm.
func New(algorithm string, opts Options) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmArgon2id:
		return NewArgon2Hasher(opts.Argon2), nil
	case AlgorithmBcrypt:
		return NewBcryptHasher(opts.BcryptCost), nil
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
}
