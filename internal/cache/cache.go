package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is a thin Redis wrapper used for short-lived response caching
// (currently the seller reputation payload). A nil *Client degrades to
// no caching everywhere, so callers never need to branch on availability.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis. Returns nil when the server is unreachable;
// the application keeps running without caching.
func New(addr string, log *zap.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, caching disabled", zap.String("addr", addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}

	log.Info("connected to Redis", zap.String("addr", addr))
	return &Client{rdb: rdb}
}

// Get returns the cached value, or "" when absent or on any error.
func (c *Client) Get(ctx context.Context, key string) string {
	if c == nil {
		return ""
	}
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return v
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil {
		return
	}
	_ = c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) Close() {
	if c != nil {
		_ = c.rdb.Close()
	}
}
