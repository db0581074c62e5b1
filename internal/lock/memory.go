package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker implements Locker using in-memory locks.
// This is suitable for single-node deployments where distributed locking is not needed.
// The locks are NOT shared across process restarts or multiple instances.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
	stop  chan struct{}
	once  sync.Once
}

// lockEntry represents a single lock.
type lockEntry struct {
	expiresAt time.Time
	token     string
}

// NewMemoryLocker creates a new in-memory locker.
// Call Close to stop the expiry sweeper.
func NewMemoryLocker() *MemoryLocker {
	ml := &MemoryLocker{
		locks: make(map[string]*lockEntry),
		stop:  make(chan struct{}),
	}

	go ml.cleanupLoop(30 * time.Second)

	return ml
}

// Close stops the background sweeper.
func (m *MemoryLocker) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// cleanupLoop periodically removes expired locks.
func (m *MemoryLocker) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes expired locks.
func (m *MemoryLocker) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.locks {
		if now.After(entry.expiresAt) {
			delete(m.locks, key)
		}
	}
}

// Acquire attempts to acquire a lock.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	if entry, exists := m.locks[key]; exists && now.Before(entry.expiresAt) {
		return nil, nil
	}

	token := uuid.NewString()
	m.locks[key] = &lockEntry{
		expiresAt: now.Add(ttl),
		token:     token,
	}

	return &Lease{Key: key, Token: token}, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*Lease, error) {
	return retryAcquire(ctx, maxRetries, retryDelay, func() (*Lease, error) {
		return m.Acquire(ctx, key, ttl)
	})
}

// owned returns the live entry for lease, or nil if the key has expired
// or moved to another holder. Callers hold m.mu.
func (m *MemoryLocker) owned(lease *Lease) *lockEntry {
	if lease == nil {
		return nil
	}
	entry, exists := m.locks[lease.Key]
	if !exists || entry.token != lease.Token {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.locks, lease.Key)
		return nil
	}
	return entry
}

// Release releases the lease.
func (m *MemoryLocker) Release(ctx context.Context, lease *Lease) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owned(lease) == nil {
		return false, nil
	}
	delete(m.locks, lease.Key)
	return true, nil
}

// Extend extends the TTL of a held lease.
func (m *MemoryLocker) Extend(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.owned(lease)
	if entry == nil {
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	return true, nil
}

// IsHeld checks if a lock is currently held.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}

	return true, nil
}

// Ensure MemoryLocker implements Locker.
var _ Locker = (*MemoryLocker)(nil)
