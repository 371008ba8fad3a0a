// Package fingerprints provides a dedupe cache shared by every instance
// through Redis.
package fingerprints

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/trustgate/internal/domain/dedupe"
)

const defaultPrefix = "trustgate/fp/"

// RedisCache records fingerprints as keys expiring after the window. The
// SET NX makes check-and-record atomic across instances; the capacity bound
// is left to Redis eviction.
type RedisCache struct {
	client *redis.Client
	window time.Duration
	prefix string
	held   atomic.Int64
}

var _ dedupe.Cache = (*RedisCache)(nil)

// NewRedisCache connects to redisURL and checks the connection.
func NewRedisCache(ctx context.Context, redisURL string, window time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCacheFromClient(rdb, window), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(rdb *redis.Client, window time.Duration) *RedisCache {
	return &RedisCache{client: rdb, window: window, prefix: defaultPrefix}
}

func (c *RedisCache) SeenAndRecord(ctx context.Context, key string) (bool, error) {
	created, err := c.client.SetNX(ctx, c.prefix+key, time.Now().UTC().Unix(), c.window).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", dedupe.ErrCache, err)
	}
	if created {
		c.held.Add(1)
	}
	return !created, nil
}

func (c *RedisCache) Unrecord(ctx context.Context, key string) error {
	n, err := c.client.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", dedupe.ErrCache, err)
	}
	c.held.Add(-n)
	return nil
}

// Size is the number of fingerprints this instance recorded and has not
// released. Expiry in Redis is not reflected.
func (c *RedisCache) Size() int64 {
	return c.held.Load()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
