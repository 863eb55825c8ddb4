package repository

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/fintrack-auth/internal/domain"
)

var (
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ LoginAttemptStore = (*MemoryAttemptStore)(nil)
)

// MemoryUserRepo keeps users in process memory.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[int64]domain.User
	byEmail map[string]int64
}

// NewMemoryUserRepo creates an empty in-memory repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (r *MemoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return domain.User{}, ErrDuplicateEmail
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[userID]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// Delete removes a user. Only used to simulate accounts that disappear.
func (r *MemoryUserRepo) Delete(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[userID]; ok {
		delete(r.byEmail, user.Email)
		delete(r.byID, userID)
	}
}

// attemptSweepInterval bounds how often RecordFailure scans for expired entries.
const attemptSweepInterval = time.Minute

// MemoryAttemptStore is the single-process fallback for login throttling.
type MemoryAttemptStore struct {
	mu        sync.Mutex
	now       func() time.Time
	entries   map[string]attemptEntry
	lastSweep time.Time
}

// MemoryAttemptOption configures a MemoryAttemptStore.
type MemoryAttemptOption func(*MemoryAttemptStore)

// WithAttemptClock overrides the time source.
func WithAttemptClock(now func() time.Time) MemoryAttemptOption {
	return func(s *MemoryAttemptStore) {
		if now != nil {
			s.now = now
		}
	}
}

type attemptEntry struct {
	count     int
	expiresAt time.Time
}

// NewMemoryAttemptStore creates an empty attempt store.
func NewMemoryAttemptStore(opts ...MemoryAttemptOption) *MemoryAttemptStore {
	s := &MemoryAttemptStore{now: time.Now, entries: make(map[string]attemptEntry)}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

func (s *MemoryAttemptStore) Failures(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}
	return entry.count, nil
}

// RecordFailure increments the counter; the window starts at the first failure.
func (s *MemoryAttemptStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = attemptEntry{expiresAt: now.Add(window)}
	}
	entry.count++
	s.entries[key] = entry

	if now.Sub(s.lastSweep) >= attemptSweepInterval {
		s.sweepLocked(now)
	}
	return entry.count, nil
}

// Len reports how many keys are tracked, expired or not.
func (s *MemoryAttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryAttemptStore) sweepLocked(now time.Time) {
	s.lastSweep = now
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryAttemptStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
