package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/fintrack-auth/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the normalized email is taken.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository persists user accounts. Implementations enforce email
// uniqueness themselves; callers must not rely on a prior lookup.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
}

// LoginAttemptStore counts failed logins per key within a sliding window.
type LoginAttemptStore interface {
	Failures(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

// NormalizeEmail is the canonical form used for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
