// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For distributed deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"strconv"
	"time"
)

// Lease is one successful acquisition of a key. Release and Extend only
// act while the key still carries the lease's token, so a holder whose
// lease expired cannot disturb whoever acquired the key next.
type Lease struct {
	Key   string
	Token string
}

// Locker defines the interface for distributed/local locking.
// This abstraction allows switching between in-memory locks (single-node)
// and Redis-based locks (distributed) without changing business logic.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns a nil lease if the key is held by someone else.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*Lease, error)

	// Release releases the lease.
	// Returns true if the lock was released, false if the lease no longer held it.
	Release(ctx context.Context, lease *Lease) (bool, error)

	// Extend extends the TTL of a held lease.
	// Returns true if the lock was extended, false if the lease no longer holds it.
	Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error)

	// IsHeld checks if the key is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// retryAcquire runs acquire up to maxRetries+1 times, sleeping retryDelay between attempts.
func retryAcquire(ctx context.Context, maxRetries int, retryDelay time.Duration, acquire func() (*Lease, error)) (*Lease, error) {
	for i := 0; i <= maxRetries; i++ {
		lease, err := acquire()
		if err != nil {
			return nil, err
		}
		if lease != nil {
			return lease, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, nil
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// ProjectMaterial returns the lock key serializing upserts of one
// (project, material) pair.
func (lockKeys) ProjectMaterial(projectID, materialID int64) string {
	return "lock:project:" + strconv.FormatInt(projectID, 10) + ":material:" + strconv.FormatInt(materialID, 10)
}
