package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestAuthMetricsRecordsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewAuthMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.Login(ctx, "success")
	m.Login(ctx, "failure")
	m.TokensCleaned(ctx, 3)
	m.TokensCleaned(ctx, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[metric.Name] += dp.Value
			}
		}
	}

	assert.EqualValues(t, 2, totals["auth.logins"])
	assert.EqualValues(t, 3, totals["auth.refresh_tokens.cleaned"])
}

func TestNilAuthMetricsIsNoop(t *testing.T) {
	var m *AuthMetrics
	assert.NotPanics(t, func() {
		m.Login(context.Background(), "success")
		m.TokenRefresh(context.Background(), "success")
		m.TokensCleaned(context.Background(), 1)
		m.OTPIssued(context.Background(), "signup")
		m.EmailFailed(context.Background(), "signup")
		m.RateLimitDenied(context.Background(), "/login")
	})
}
