// Package memory provides an in-memory cache implementation.
// This is suitable for single-node deployments where Redis is not available.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prn-tf/pmapp/internal/repository"
)

// Cache implements repository.Cache using in-memory storage.
// This is NOT suitable for distributed deployments.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	stopCh  chan struct{}
	stopped bool
}

// cacheItem represents a single cached item.
type cacheItem struct {
	value     []byte
	expiresAt time.Time
	noExpiry  bool
}

func (i *cacheItem) isExpired() bool {
	if i.noExpiry {
		return false
	}
	return time.Now().After(i.expiresAt)
}

// NewCache creates a new in-memory cache.
// Call Stop to end the expiry sweeper.
func NewCache() *Cache {
	c := &Cache{
		items:  make(map[string]*cacheItem),
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// cleanupLoop periodically removes expired items.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.isExpired() {
			delete(c.items, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Get retrieves a copy of the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.isExpired() {
		return nil, repository.ErrCacheMiss
	}

	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

// Set stores a copy of value. A zero ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	item := &cacheItem{value: valueCopy}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	} else {
		item.noExpiry = true
	}

	c.items[key] = item
	return nil
}

// Delete removes values by key.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

// Incr increments the decimal integer stored under key. An existing
// key keeps its expiry; a new key never expires.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists || item.isExpired() {
		item = &cacheItem{value: []byte("0"), noExpiry: true}
	}

	n, err := strconv.ParseInt(string(item.value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value at %s is not an integer", key)
	}
	n++
	item.value = []byte(strconv.FormatInt(n, 10))
	c.items[key] = item
	return n, nil
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
