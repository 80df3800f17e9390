package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements a Redis-backed cache for multi-instance
// deployments, where several runners share one catalog cache.
//
// Entries are stored without a Redis expiry: staleness is tracked in the
// entry metadata instead, so an expired snapshot stays available to
// [RedisCache.GetStale] for degraded-mode fallback. Use Delete (or the
// cache clear command) to reclaim space.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures a Redis cache backend.
type RedisConfig struct {
	Addr     string // host:port
	Password string
	DB       int
	Prefix   string // key prefix, defaults to "sdkbench:"
}

// NewRedisCache creates a Redis-backed cache and verifies connectivity.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (Cache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "sdkbench:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Get retrieves a value, treating stale entries as misses.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, stale, err := c.GetStale(ctx, key)
	if stale {
		return nil, false, nil
	}
	return data, hit, err
}

// GetStale retrieves a value even if it has expired.
func (c *RedisCache) GetStale(ctx context.Context, key string) ([]byte, bool, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, false, nil
	}
	if err != nil {
		return nil, false, false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = c.client.Del(ctx, c.prefix+key).Err()
		return nil, false, false, nil
	}

	stale := !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt)
	return entry.Data, true, stale, nil
}

// Set stores a value with the given TTL recorded in entry metadata.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := cacheEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, 0).Err()
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Close closes the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
