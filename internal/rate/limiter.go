package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds attempt limiter tuning parameters.
type Config struct {
	// MaxAttempts is the failure budget per client identity. The limiter
	// blocks one attempt early (count >= MaxAttempts-1) because it is
	// consulted before the attempt that would reach the budget is recorded.
	MaxAttempts int
	// AttemptTTL is the sliding cooldown; it restarts on every failure.
	AttemptTTL time.Duration
	// KeyPrefix namespaces counter keys in the shared store.
	KeyPrefix string
}

// AttemptStore is the counter capability the limiter runs against. The
// production implementation is [RedisStore]; tests may substitute an
// in-memory fake.
type AttemptStore interface {
	// Count returns the current counter value for key, zero when absent.
	Count(ctx context.Context, key string) (int64, error)

	// IncrementAndExpire atomically increments the counter for key and
	// resets its expiry to ttl, returning the new value. Increment and
	// expiry must be indivisible with respect to concurrent callers.
	IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisStore implements [AttemptStore] on a Redis client.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore creates a Redis-backed attempt store.
func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Count returns the stored counter, treating a missing key as zero.
func (s *RedisStore) Count(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// IncrementAndExpire runs INCR and EXPIRE inside a single MULTI/EXEC so
// concurrent failures from the same client never lose an update.
func (s *RedisStore) IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return incr.Val(), nil
}

// Limiter enforces the per-client authentication attempt budget.
type Limiter struct {
	store  AttemptStore
	config Config
}

// New creates a [Limiter] over the given attempt store.
func New(store AttemptStore, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "att:"
	}
	return &Limiter{store: store, config: cfg}
}

func (l *Limiter) key(identity string) string {
	return l.config.KeyPrefix + identity
}

// Blocked reports whether further authentication attempts from identity are
// denied. It is side-effect free; a missing counter means zero failures.
func (l *Limiter) Blocked(ctx context.Context, identity string) (bool, error) {
	count, err := l.store.Count(ctx, l.key(identity))
	if err != nil {
		return false, err
	}
	return count >= int64(l.config.MaxAttempts)-1, nil
}

// RecordFailure counts a failed attempt for identity and restarts its
// cooldown window. Successful authentications are never recorded and do not
// clear the counter.
func (l *Limiter) RecordFailure(ctx context.Context, identity string) error {
	_, err := l.store.IncrementAndExpire(ctx, l.key(identity), l.config.AttemptTTL)
	return err
}

// Attempts returns the current failure count for identity.
func (l *Limiter) Attempts(ctx context.Context, identity string) (int64, error) {
	return l.store.Count(ctx, l.key(identity))
}
