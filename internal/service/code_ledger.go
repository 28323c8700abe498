package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// CodeLedger remembers one-time codes that were already redeemed so that a
// verified code cannot be replayed before it expires. It also counts wrong
// guesses per code and retires a code once they reach the cap.
type CodeLedger struct {
	redis *database.Redis
}

// NewCodeLedger creates a new ledger
func NewCodeLedger(redis *database.Redis) *CodeLedger {
	return &CodeLedger{redis: redis}
}

// Consume marks fullHash as used for ttl. It returns false when the hash was
// consumed before.
func (l *CodeLedger) Consume(ctx context.Context, fullHash string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	key := fmt.Sprintf("otp:used:%s", fullHash)
	fresh, err := l.redis.Client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record used code: %w", err)
	}
	return fresh, nil
}

// RecordFailure counts a wrong guess against fullHash for ttl. Once the count
// reaches maxFailures the hash is marked used, so even the right code is
// refused afterwards. It reports whether the hash is now burned.
func (l *CodeLedger) RecordFailure(ctx context.Context, fullHash string, ttl time.Duration, maxFailures int) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	key := fmt.Sprintf("otp:fail:%s", fullHash)
	var incr *redis.IntCmd
	_, err := l.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record wrong code: %w", err)
	}

	if incr.Val() < int64(maxFailures) {
		return false, nil
	}

	usedKey := fmt.Sprintf("otp:used:%s", fullHash)
	if err := l.redis.Client.Set(ctx, usedKey, "1", ttl).Err(); err != nil {
		return false, fmt.Errorf("failed to retire code: %w", err)
	}
	return true, nil
}
