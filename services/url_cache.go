package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const urlCachePrefix = "image-url:"

// URLCache remembers signed image URLs so list endpoints do not presign every row
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisURLCache stores signed URLs in Redis with an expiry
type RedisURLCache struct {
	rdb *redis.Client
}

// NewRedisURLCache connects to redisURL and verifies the connection
func NewRedisURLCache(ctx context.Context, redisURL string) (*RedisURLCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisURLCache{rdb: rdb}, nil
}

// Get returns the cached URL for key, if any
func (c *RedisURLCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, urlCachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached URL: %w", err)
	}
	return val, true, nil
}

// Set caches url for key until ttl elapses
func (c *RedisURLCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, urlCachePrefix+key, url, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache URL: %w", err)
	}
	return nil
}

// Delete drops the cached URL for key
func (c *RedisURLCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, urlCachePrefix+key).Err()
}

// Close releases the Redis connection pool
func (c *RedisURLCache) Close() error {
	return c.rdb.Close()
}
