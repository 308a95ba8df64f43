package geo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eldo84/live-health-sub002/internal/model"
)

var lima = Place{Name: "Lima, Peru", Position: model.Position{Lat: -12.05, Lon: -77.04}}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "lima peru", CacheKey("  Lima   PERU "))
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "Lima", lima)
	p, ok := c.Get(ctx, "lima")
	require.True(t, ok)
	assert.Equal(t, lima, p)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "lima")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheEvictsLeastRecent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	c.Set(ctx, "a", lima)
	c.Set(ctx, "b", lima)
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	c.Set(ctx, "c", lima)

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	c := NewRedisCache(rdb, time.Hour, nil)

	_, ok := c.Get(ctx, "Lima")
	assert.False(t, ok)

	c.Set(ctx, "Lima", lima)
	assert.True(t, mr.Exists(redisKeyPrefix+"lima"))
	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+"lima"))

	p, ok := c.Get(ctx, "LIMA")
	require.True(t, ok)
	assert.Equal(t, lima, p)

	mr.FastForward(2 * time.Hour)
	_, ok = c.Get(ctx, "lima")
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set(redisKeyPrefix+"lima", "{not json"))

	_, ok := NewRedisCache(rdb, 0, nil).Get(ctx, "lima")
	assert.False(t, ok)
}

func TestRedisCacheDownIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	c := NewRedisCache(rdb, time.Hour, nil)
	mr.Close()

	assert.NotPanics(t, func() { c.Set(ctx, "lima", lima) })
	_, ok := c.Get(ctx, "lima")
	assert.False(t, ok)
}
