package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics holds the counters recorded by the auth flows.
// A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	logins          metric.Int64Counter
	tokenRefreshes  metric.Int64Counter
	tokensCleaned   metric.Int64Counter
	otpIssued       metric.Int64Counter
	emailsFailed    metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	var (
		m   AuthMetrics
		err error
	)

	if m.logins, err = meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by result")); err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}
	if m.tokenRefreshes, err = meter.Int64Counter("auth.token_refreshes",
		metric.WithDescription("Refresh token redemptions by result")); err != nil {
		return nil, fmt.Errorf("failed to create token refreshes counter: %w", err)
	}
	if m.tokensCleaned, err = meter.Int64Counter("auth.refresh_tokens.cleaned",
		metric.WithDescription("Stale refresh tokens removed at login")); err != nil {
		return nil, fmt.Errorf("failed to create cleanup counter: %w", err)
	}
	if m.otpIssued, err = meter.Int64Counter("auth.otp.issued",
		metric.WithDescription("One-time codes sent by purpose")); err != nil {
		return nil, fmt.Errorf("failed to create otp counter: %w", err)
	}
	if m.emailsFailed, err = meter.Int64Counter("auth.emails.failed",
		metric.WithDescription("Outgoing emails that could not be delivered")); err != nil {
		return nil, fmt.Errorf("failed to create email failure counter: %w", err)
	}
	if m.rateLimitDenied, err = meter.Int64Counter("auth.rate_limit.denied",
		metric.WithDescription("Requests rejected by the rate limiter")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	return &m, nil
}

func (m *AuthMetrics) Login(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *AuthMetrics) TokenRefresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *AuthMetrics) TokensCleaned(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensCleaned.Add(ctx, n)
}

func (m *AuthMetrics) OTPIssued(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.otpIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose)))
}

func (m *AuthMetrics) EmailFailed(ctx context.Context, tag string) {
	if m == nil {
		return
	}
	m.emailsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", tag)))
}

func (m *AuthMetrics) RateLimitDenied(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
