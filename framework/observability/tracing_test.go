package observability_test

import (
	"context"
	"errors"
	"testing"

	"eventcore/framework/eventbus"
	"eventcore/framework/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct{}

func TestTracingManager_DisabledProducesNoopTracer(t *testing.T) {
	tm, err := observability.NewTracingManager(observability.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, tm.Tracer())
	assert.False(t, tm.IsRunning())
}

func TestTracingManager_StartStopLifecycle(t *testing.T) {
	tm, err := observability.NewTracingManager(observability.TracingConfig{
		Enabled:        true,
		ServiceName:    "test-service",
		ServiceVersion: "0.0.1",
		SamplingRate:   1.0,
		Environment:    "test",
	})
	require.NoError(t, err)

	require.NoError(t, tm.Start(context.Background()))
	assert.True(t, tm.IsRunning())

	require.NoError(t, tm.Stop(context.Background()))
	assert.False(t, tm.IsRunning())
}

func TestTracingInterceptor_WrapsSuccessAndFailure(t *testing.T) {
	tm, err := observability.NewTracingManager(observability.TracingConfig{Enabled: false})
	require.NoError(t, err)

	interceptor := observability.NewTracingInterceptor(tm.Tracer(), 0)
	bus := eventbus.New("tracing-test", eventbus.WithInterceptors(interceptor))

	require.NoError(t, eventbus.For[pingEvent](bus, "ok-listener").Primary(func(ctx context.Context, e pingEvent) error {
		return nil
	}))
	assert.NoError(t, bus.Post(context.Background(), pingEvent{}))

	require.NoError(t, eventbus.For[pingEvent](bus, "fail-listener").Primary(func(ctx context.Context, e pingEvent) error {
		return errors.New("boom")
	}))
	assert.NoError(t, bus.Post(context.Background(), pingEvent{}))
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := observability.InjectCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", observability.ExtractCorrelationID(ctx))
}

func TestNewCorrelationID_ProducesNonEmptyValues(t *testing.T) {
	a := observability.NewCorrelationID()
	b := observability.NewCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
