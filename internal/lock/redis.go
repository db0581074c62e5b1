package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only if the key still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX on a shared Redis.
// Each acquisition stores a random token that its Lease carries, so only
// that holder can release or extend it.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker creates a new RedisLocker on an existing client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire attempts to acquire a lock.
// Returns a nil lease if the key is held by another holder.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{Key: key, Token: token}, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*Lease, error) {
	return retryAcquire(ctx, maxRetries, retryDelay, func() (*Lease, error) {
		return l.Acquire(ctx, key, ttl)
	})
}

// Release releases the lease if its token still owns the key.
func (l *RedisLocker) Release(ctx context.Context, lease *Lease) (bool, error) {
	if lease == nil {
		return false, nil
	}

	n, err := releaseScript.Run(ctx, l.client, []string{lease.Key}, lease.Token).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s: %w", lease.Key, err)
	}
	return n == 1, nil
}

// Extend extends the TTL of the lease if its token still owns the key.
func (l *RedisLocker) Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	if lease == nil {
		return false, nil
	}

	n, err := extendScript.Run(ctx, l.client, []string{lease.Key}, lease.Token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock %s: %w", lease.Key, err)
	}
	return n == 1, nil
}

// IsHeld checks if the lock is currently held by anyone.
func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock %s: %w", key, err)
	}
	return n > 0, nil
}

// Ensure RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)
