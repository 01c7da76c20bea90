package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by Redis, for deployments
// where multiple instances must share quota state. INCR is atomic, so
// concurrent consumers across processes cannot lose updates.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	period time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per period,
// counted in the given Redis instance.
func NewRedisLimiter(client *redis.Client, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		period: period,
	}
}

func (l *RedisLimiter) redisKey(identifier, action string) string {
	return "ratelimit:" + key(identifier, action)
}

// Check reads the current count without incrementing.
func (l *RedisLimiter) Check(ctx context.Context, identifier, action string) (Result, error) {
	k := l.redisKey(identifier, action)

	count, err := l.client.Get(ctx, k).Int()
	if err == redis.Nil {
		return Result{Allowed: true, Remaining: l.limit}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if count < l.limit {
		return Result{Allowed: true, Remaining: l.limit - count}, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	return Result{Allowed: false, RetryAfter: ttl}, nil
}

// Consume increments the window counter, creating it with the window TTL on
// first use. INCR and the TTL bootstrap run in one MULTI/EXEC, so a crash
// between them cannot leave a counter without an expiry. The count is
// incremented even on denial; the key expiring is what resets the window.
func (l *RedisLimiter) Consume(ctx context.Context, identifier, action string) (Result, error) {
	k := l.redisKey(identifier, action)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.period)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	count := incr.Val()

	if int(count) <= l.limit {
		return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	return Result{Allowed: false, RetryAfter: ttl}, nil
}
