package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = time.Hour

// RedisCache is a byte cache on top of Redis. A nil client turns every call
// into a miss or a no-op.
type RedisCache struct {
	rc *redis.Client
}

// NewRedisCache wraps rc.
func NewRedisCache(rc *redis.Client) *RedisCache {
	return &RedisCache{rc: rc}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if c == nil || c.rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if c == nil || c.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Del(ctx, key).Err(); err != nil {
		Sugar.Warnf("cache delete failed key=%s err=%v", key, err)
	}
}

// GetJSON decodes a cached value into v.
func (c *RedisCache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	b, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// SetJSON marshals v and stores it.
func (c *RedisCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, b, ttl)
}
