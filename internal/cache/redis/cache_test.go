package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/repository"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client), s
}

func TestCache_RoundTrip(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "cache:materials")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "cache:materials", []byte(`[]`), time.Minute))
	got, err := c.Get(ctx, "cache:materials")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	s.FastForward(2 * time.Minute)
	assert.False(t, s.Exists("cache:materials"))

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))
	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_Incr(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "cache:materials:generation")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	got, err := s.Get("cache:materials:generation")
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	s.Close()
	_, err = c.Incr(ctx, "cache:materials:generation")
	require.ErrorIs(t, err, repository.ErrCacheUnavailable)
}

func TestCache_Unavailable(t *testing.T) {
	c, s := newTestCache(t)
	s.Close()

	_, err := c.Get(context.Background(), "k")
	require.ErrorIs(t, err, repository.ErrCacheUnavailable)
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{Host: s.Host(), Port: port, PoolSize: 2, DialTimeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	_, err = NewClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 100 * time.Millisecond})
	require.ErrorIs(t, err, repository.ErrCacheUnavailable)
}
