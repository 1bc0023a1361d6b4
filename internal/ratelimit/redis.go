package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces limiter keys in a shared Redis instance.
const keyPrefix = "cardvault:ratelimit:"

// checkAndIncrScript increments the counter only while it is under the limit,
// setting the window expiry on the first request. Returns 1 when allowed.
var checkAndIncrScript = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	if current >= tonumber(ARGV[1]) then
		return 0
	end
	current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return 1
`)

// RedisLimiter is a fixed-window rate limiter backed by Redis, sharing one
// counter per client across all service instances. Expiry replaces the memory
// limiter's sweep: Redis drops each window key when its TTL elapses.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a Redis-backed limiter allowing limit requests per
// client per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow records a request and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	key := keyPrefix + clientID

	allowed, err := checkAndIncrScript.Run(ctx, l.client,
		[]string{key}, l.limit, l.window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return allowed == 1, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (l *RedisLimiter) Close() error {
	return nil
}

// Ensure RedisLimiter implements Limiter
var _ Limiter = (*RedisLimiter)(nil)
