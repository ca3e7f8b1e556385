package cache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gagern/confoo/pkg/errors"
)

// Redis retry policy for network failures.
const (
	redisAttempts = 3
	redisBackoff  = 100 * time.Millisecond
)

// RedisCache stores entries in Redis. All keys live below a common prefix
// so that [RedisCache.Clear] only touches entries of this program.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	backoff time.Duration
}

// NewRedisCache connects to the server named by a redis:// or rediss://
// URL. The connection is established lazily; use [RedisCache.Ping] to check
// it up front.
func NewRedisCache(url, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "redis url")
	}
	return &RedisCache{client: redis.NewClient(opts), prefix: prefix, backoff: redisBackoff}, nil
}

// Ping checks that the server answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	return wrap(c.do(ctx, func() error { return c.client.Ping(ctx).Err() }), "ping", c.client.Options().Addr)
}

// Get implements [Cache].
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.do(ctx, func() error {
		var err error
		data, err = c.client.Get(ctx, c.prefix+key).Bytes()
		return err
	})
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(err, "get", key)
	}
	return data, true, nil
}

// Set implements [Cache].
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return wrap(c.do(ctx, func() error {
		return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
	}), "set", key)
}

// Delete implements [Cache].
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return wrap(c.do(ctx, func() error {
		return c.client.Del(ctx, c.prefix+key).Err()
	}), "delete", key)
}

// Clear deletes every key below the prefix and returns how many were
// deleted.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, wrap(err, "scan", c.prefix)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	return int(n), wrap(err, "clear", c.prefix)
}

// Close implements [Cache].
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) do(ctx context.Context, fn func() error) error {
	return RetryWithBackoff(ctx, redisAttempts, c.backoff, func() error {
		return retryNetwork(fn())
	})
}

var _ Cache = (*RedisCache)(nil)
