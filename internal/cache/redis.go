// Package cache wraps the Redis client shared by the rate limiter and the
// realtime broker.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const RateLimitWindow = time.Minute

type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New parses a redis:// URL, connects and pings.
func New(ctx context.Context, url string, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr))
	return &Cache{client: client, logger: logger}, nil
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func RateLimitKey(scope, subject string) string {
	return fmt.Sprintf("guardpost:ratelimit:%s:%s", scope, subject)
}

// Increment bumps the counter at key and returns its new value. A key that
// did not exist starts at 1 with no TTL.
func (c *Cache) Increment(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("failed to increment", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("increment: %w", err)
	}
	return n, nil
}

// Expire sets the TTL of key.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
		c.logger.Error("failed to set expiry", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("expire: %w", err)
	}
	return nil
}
