package lock

import (
	"context"
	"time"
)

// NoOpLocker is a locker that always succeeds. Services fall back to it
// when no locker is configured.
type NoOpLocker struct{}

// NewNoOpLocker creates a new no-op locker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

// Acquire always returns a lease.
func (n *NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Lease{Key: key}, nil
}

// AcquireWithRetry always returns a lease.
func (n *NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*Lease, error) {
	return n.Acquire(ctx, key, ttl)
}

// Release always returns true (lock released).
func (n *NoOpLocker) Release(ctx context.Context, lease *Lease) (bool, error) {
	return true, ctx.Err()
}

// Extend always returns true (lock extended).
func (n *NoOpLocker) Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// IsHeld always returns false (no lock held in no-op mode).
func (n *NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, ctx.Err()
}

// Ensure NoOpLocker implements Locker.
var _ Locker = (*NoOpLocker)(nil)
