package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *database.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := &database.Redis{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	_, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb)
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	for want := 2; want >= 0; want-- {
		decision, err := limiter.Allow(ctx, "login:1.1.1.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 3, decision.Limit)
		assert.Equal(t, want, decision.Remaining)
	}

	denied, err := limiter.Allow(ctx, "login:1.1.1.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Zero(t, denied.Remaining)
	assert.Greater(t, denied.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, denied.RetryAfter, time.Minute)

	other, err := limiter.Allow(ctx, "login:2.2.2.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	clock = clock.Add(time.Minute)
	again, err := limiter.Allow(ctx, "login:1.1.1.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestRateLimiterConcurrentRequests(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(ctx, "reset:1.1.1.1", 5, time.Minute)
			if assert.NoError(t, err) && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
	members, err := mr.ZMembers("ratelimit:reset:1.1.1.1")
	require.NoError(t, err)
	assert.Len(t, members, 5)
	assert.Greater(t, mr.TTL("ratelimit:reset:1.1.1.1"), time.Minute)
}

func TestRateLimiterReportsRedisFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "login:1.1.1.1", 3, time.Minute)
	assert.Error(t, err)
}
