package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters shared by both implementations.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// RedisLimiter enforces a fixed-window attempt budget per key using Redis
// counters.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedis creates a [RedisLimiter] backed by the given Redis client.
func NewRedis(redisClient redis.UniversalClient, cfg Config) *RedisLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "idr:login"
	}
	return &RedisLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one attempt for key and returns ErrRateLimited once more than
// MaxAttempts were made inside the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	count, err := l.incrementWithTTL(ctx, l.key(key), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for key. Called after a successful login.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter for key. Missing keys return zero.
func (l *RedisLimiter) Attempts(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *RedisLimiter) key(key string) string {
	return l.config.Prefix + ":" + key
}

func (l *RedisLimiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
