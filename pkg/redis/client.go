package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps go-redis client with optional logger.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("Redis client connected", zap.String("addr", addr))
	return &Client{Client: rdb, logger: logger}, nil
}

const rateLimitPrefix = "rate_limit:"

// rateLimitScript counts one hit and arms the window whenever the counter has no TTL,
// so a counter never outlives its window.
var rateLimitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Allow counts one hit against key in a fixed window and reports whether it is within limit.
// The window starts at the first hit, so a burst can span two adjacent windows.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return allow(ctx, c.Client, key, limit, window)
}

func allow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error) {
	n, err := rateLimitScript.Run(ctx, rdb, []string{rateLimitPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n <= int64(limit), nil
}
