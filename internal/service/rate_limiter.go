package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of one rate limit check
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a sliding-window log limiter kept in a Redis sorted set
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// slidingWindow trims the window, then either reports the oldest entry of a
// full window or records the request. Returns {allowed, count, oldestMillis}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
local count = redis.call("ZCARD", key)
if count >= limit then
	local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
	local oldestAt = now
	if #oldest > 0 then
		oldestAt = tonumber(oldest[2])
	end
	return {0, count, oldestAt}
end

redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window + 60000)
return {1, count, 0}
`)

// Allow records a request for key when it fits into the window. The check
// and the insert run as one script so concurrent callers cannot overshoot.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateDecision, error) {
	now := r.now()

	result, err := slidingWindow.Run(ctx, r.redis.Client,
		[]string{"ratelimit:" + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate rate limit window: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply: %v", result)
	}

	count := int(result[1])
	decision := &RateDecision{Limit: limit}

	if result[0] == 0 {
		decision.RetryAfter = window - now.Sub(time.UnixMilli(result[2]))
		if decision.RetryAfter < time.Second {
			decision.RetryAfter = time.Second
		}
		return decision, nil
	}

	decision.Allowed = true
	decision.Remaining = limit - count - 1
	return decision, nil
}
