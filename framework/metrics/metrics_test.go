package metrics_test

import (
	"context"
	"errors"
	"testing"

	"eventcore/framework/eventbus"
	"eventcore/framework/metrics"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct{}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestInterceptor_RecordsPostedAndFailedCounters(t *testing.T) {
	ctx := context.Background()
	_, reader, err := metrics.Setup(ctx, metrics.Config{ResourceAttrs: map[string]string{"service.name": "test"}})
	require.NoError(t, err)

	interceptor, err := metrics.New("eventcore-test", 0)
	require.NoError(t, err)

	bus := eventbus.New("metrics-test", eventbus.WithInterceptors(interceptor))
	require.NoError(t, eventbus.For[pingEvent](bus, "listener").Primary(func(ctx context.Context, e pingEvent) error {
		return errors.New("boom")
	}))

	require.NoError(t, bus.Post(ctx, pingEvent{}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(1), sumOf(t, rm, "events_posted_total"))
	assert.Equal(t, int64(1), sumOf(t, rm, "events_failed_total"))
}
