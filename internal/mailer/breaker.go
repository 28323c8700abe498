package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker refuses to call the provider
var ErrCircuitOpen = errors.New("mail provider circuit open")

// BreakerSender stops calling a failing provider for a while so that
// requests fail fast instead of piling up on timeouts
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSender wraps next with a circuit breaker that opens after
// maxFailures consecutive failures and probes again after openTimeout
func NewBreakerSender(next Sender, maxFailures uint32, openTimeout time.Duration, logger *zap.Logger) *BreakerSender {
	st := gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// caller mistakes say nothing about provider health
			return err == nil || errors.Is(err, ErrInvalidParams)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// Send implements Sender
func (s *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}
