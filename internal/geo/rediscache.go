package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "outbreak:geocode:"

// RedisCache shares geocoding results between processes. Redis errors are
// logged and treated as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context, query string) (Place, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+CacheKey(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("geocode cache read failed", zap.String("query", query), zap.Error(err))
		}
		return Place{}, false
	}
	var p Place
	if err := json.Unmarshal(raw, &p); err != nil {
		c.log.Warn("geocode cache entry corrupt", zap.String("query", query), zap.Error(err))
		return Place{}, false
	}
	return p, true
}

func (c *RedisCache) Set(ctx context.Context, query string, p Place) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+CacheKey(query), b, c.ttl).Err(); err != nil {
		c.log.Warn("geocode cache write failed", zap.String("query", query), zap.Error(err))
	}
}
