package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/services/cache"
	"matchmaking-engine/internal/services/matcher"
)

func newCache(t *testing.T) *cache.CandidateCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	c, err := cache.New(cache.Config{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Unreachable(t *testing.T) {
	_, err := cache.New(cache.Config{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	assert.ErrorIs(t, err, cache.ErrCacheConnection)
}

func TestCandidateCache_SetGetInvalidate(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	requester := time.Now().UnixNano()
	key := matcher.CacheKey(requester, 0, matcher.Options{CrossCheck: true, Limit: 5})
	otherKey := matcher.CacheKey(requester+1, 0, matcher.Options{})

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	sel := &matcher.Selection{
		RequesterID: requester,
		Mode:        matcher.ModeStored,
		Stats:       matcher.SelectionStats{PoolSize: 4, Returned: 0, Ranked: true},
	}
	require.NoError(t, c.Set(ctx, key, sel))
	require.NoError(t, c.Set(ctx, otherKey, &matcher.Selection{RequesterID: requester + 1}))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, requester, got.RequesterID)
	assert.Equal(t, 4, got.Stats.PoolSize)
	assert.True(t, got.Stats.Ranked)

	require.NoError(t, c.Invalidate(ctx, requester))

	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, otherKey)
	require.NoError(t, err)
	assert.True(t, ok, "other requesters keep their entries")
	require.NoError(t, c.Invalidate(ctx, requester+1))
}

func TestCandidateCache_Generation(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	before, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.BumpGeneration(ctx))
	after, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	requester := time.Now().UnixNano()
	assert.NotEqual(t,
		matcher.CacheKey(requester, before, matcher.Options{}),
		matcher.CacheKey(requester, after, matcher.Options{}))
}
