// Package redis provides a Redis-backed cache implementation shared by
// every server instance.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/repository"
)

// NewClient creates a go-redis client from configuration and verifies it with PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return client, nil
}

// Cache implements repository.Cache on Redis strings.
type Cache struct {
	client goredis.UniversalClient
}

// NewCache creates a cache on an existing client.
func NewCache(client goredis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, repository.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return value, nil
}

// Set stores a value. A zero ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes values by key.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return nil
}

// Incr increments the counter at key with INCR, shared by every instance.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return n, nil
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
