package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of a rate limit check
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records a request for key and reports whether it fits in the
// sliding window. An error means Redis could not be consulted.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateDecision, error) {
	now := r.now()

	// Sliding window log keyed by "ratelimit:{key}", scored in milliseconds
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	res, err := slidingWindowScript.Run(ctx, r.redis.Client, []string{redisKey},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	count := int(res[1])
	if res[0] == 0 {
		decision := &RateDecision{Allowed: false, Limit: limit, RetryAfter: window}
		if res[2] > 0 {
			oldestTime := time.UnixMilli(res[2])
			decision.RetryAfter = max(window-now.Sub(oldestTime), time.Second).Round(time.Second)
		}
		return decision, nil
	}

	return &RateDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: max(limit-count-1, 0),
	}, nil
}

// slidingWindowScript runs the whole check as one Redis call, so concurrent
// requests cannot all observe the same count. The key outlives the window by
// a minute so stragglers are still counted. Reply: {allowed, count, oldest}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window + 60000)
	return {1, count, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = 0
if #oldest == 2 then
	oldestScore = tonumber(oldest[2])
end
return {0, count, oldestScore}
`)
