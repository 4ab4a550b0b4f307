// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"probate-resolver/internal/common/config"
)

// Profile cache lookups are single GET/SET calls. A slow Redis falls back to
// the source rather than stalling a merge, so I/O timeouts stay short.
const (
	defaultRedisDialTimeout = 2 * time.Second
	defaultRedisIOTimeout   = 500 * time.Millisecond
	maxProfilePoolSize      = 64
)

// RedisClient wraps the client behind the persisted profile cache.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	return &RedisClient{Client: redis.NewClient(redisOptions(cfg))}, nil
}

// ProfilePoolSize is the number of connections the profile cache can use at
// once: every concurrent resolution may deep-fetch up to maxDeepFetches
// profiles in parallel.
func ProfilePoolSize(batchConcurrency, maxDeepFetches int) int {
	n := max(batchConcurrency, 1) * max(maxDeepFetches, 1)
	return min(n, maxProfilePoolSize)
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  millisOr(cfg.DialTimeoutMs, defaultRedisDialTimeout),
		ReadTimeout:  millisOr(cfg.IOTimeoutMs, defaultRedisIOTimeout),
		WriteTimeout: millisOr(cfg.IOTimeoutMs, defaultRedisIOTimeout),
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = ProfilePoolSize(1, 8)
	}
	if opts.MinIdleConns <= 0 || opts.MinIdleConns > opts.PoolSize {
		opts.MinIdleConns = max(opts.PoolSize/4, 1)
	}
	return opts
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
