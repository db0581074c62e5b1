package repository

import (
	"context"
	"strconv"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the interface for caching operations.
// Implemented in memory for single-node deployments and with Redis otherwise.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes values by key. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer stored at key and returns the
	// new value. A missing key counts as 0.
	Incr(ctx context.Context, key string) (int64, error)
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// CacheKey generates cache keys for common scenarios.
type CacheKey struct{}

// Materials returns the cache key for the material catalog listing
// taken at the given generation.
func (CacheKey) Materials(generation int64) string {
	return "cache:materials:" + strconv.FormatInt(generation, 10)
}

// MaterialsGeneration returns the key of the counter bumped on every
// catalog write. Listings cached under an older generation are never read.
func (CacheKey) MaterialsGeneration() string {
	return "cache:materials:generation"
}
