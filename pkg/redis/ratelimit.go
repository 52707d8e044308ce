package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// retryInterval is how long Wait sleeps between Allow attempts.
const retryInterval = 100 * time.Millisecond

// allowScript keeps the prune/count/add sequence atomic so concurrent
// processes cannot slip past the limit between steps.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	else
		return {0, 0}
	end
`)

// RateLimiter is a sliding-window limiter backed by Redis, shared by
// every process that talks to the same external API.
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig names a limit: at most Limit requests per Window
// under the given key.
type RateLimitConfig struct {
	Key    string
	Limit  int
	Window time.Duration
}

func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow records a request if the limit permits it. Returns whether the
// request may proceed and how many slots remain in the window. With
// Redis disabled everything is allowed; local limiters still apply.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	result, err := allowScript.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))

	return allowed, remaining, nil
}

// Wait blocks until the limit admits a request or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Limits for the external APIs the radar calls.
var (
	// SEC asks for at most 10 req/s per client; leave headroom.
	EDGARRateLimit = RateLimitConfig{
		Key:    "edgar",
		Limit:  8,
		Window: time.Second,
	}

	// Shared by embedding, extraction and classification-check calls.
	OpenAIRateLimit = RateLimitConfig{
		Key:    "openai",
		Limit:  200,
		Window: time.Minute,
	}
)
