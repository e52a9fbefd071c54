// Package redis wraps go-redis/v9 for publishing matches over pub/sub and
// keeping per-query match counters.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/config"
)

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// PublishCounted publishes payload on channel and increments field of the
// counters hash in the same transaction. It returns the number of
// subscribers that received the message.
func (c *Client) PublishCounted(ctx context.Context, channel string, payload []byte, counters, field string) (int64, error) {
	var published *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		published = pipe.Publish(ctx, channel, payload)
		pipe.HIncrBy(ctx, counters, field, 1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return published.Val(), nil
}

// Counters returns every field of the counters hash.
func (c *Client) Counters(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
