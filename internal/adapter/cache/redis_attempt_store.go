package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbiznis/fintrack-auth/internal/repository"
)

const attemptKeyPrefix = "fintrack:login_failures:"

// recordFailureScript increments the counter and sets the TTL when the key is
// new or has lost its expiry. Runs on Redis 6 and later.
var recordFailureScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisAttemptStore implements LoginAttemptStore backed by Redis so that
// counters are shared across replicas.
type RedisAttemptStore struct {
	client redis.UniversalClient
}

var _ repository.LoginAttemptStore = (*RedisAttemptStore)(nil)

// NewRedisAttemptStore constructs a Redis-backed attempt store.
func NewRedisAttemptStore(client redis.UniversalClient) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

// Failures returns the current failure count for key.
func (s *RedisAttemptStore) Failures(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, attemptKeyPrefix+key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("load failures: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter and starts the window on the first failure.
func (s *RedisAttemptStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	n, err := recordFailureScript.Run(ctx, s.client, []string{attemptKeyPrefix + key}, window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("record failure: %w", err)
	}
	return n, nil
}

// Reset clears the counter for key.
func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptKeyPrefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reset failures: %w", err)
	}
	return nil
}
