// Package cache provides a wrapper around the redis client.
package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is a wrapper around the redis client.
type Cache struct {
	redis *redis.Client
}

func New() (*Cache, error) {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")

	envVars := map[string]string{
		"REDIS_HOST": host,
		"REDIS_PORT": port,
	}

	for key, value := range envVars {
		if value == "" {
			return nil, fmt.Errorf("%s environment variable not set", key)
		}
	}

	url := fmt.Sprintf("%s:%s", host, port)
	rdb := redis.NewClient(&redis.Options{Addr: url})

	return &Cache{
		redis: rdb,
	}, nil
}

// SetNX sets a value only if the key is absent and reports whether it was
// set. Used as a first-writer-wins guard.
func (c *Cache) SetNX(ctx context.Context, key string, value any, expirationTime time.Duration) (bool, error) {
	return c.redis.SetNX(ctx, key, value, expirationTime).Result()
}

// Ping pings the cache.
func (c *Cache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
