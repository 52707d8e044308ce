package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manoharb30/insight-lookinsight/pkg/config"
)

const dialTimeout = 5 * time.Second

// Client wraps the Redis connection. Redis is optional: when disabled
// in config, a no-op client is returned and callers fall through to
// their uncached paths.
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New connects to Redis per config, or returns a disabled client when
// Redis is turned off. A failed ping is an error, not a silent
// fallback; the caller decides whether to run without cache.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled reports whether this client holds a live connection.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis exposes the underlying client for operations the wrappers do
// not cover (scripts, pipelines).
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
