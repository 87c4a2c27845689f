package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventcore/framework/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tick struct{ n int }

func TestAsyncEventBus_PerSubscriberFIFO(t *testing.T) {
	bus := eventbus.NewAsync("test-async", eventbus.WithAsyncWorkers(4))
	defer bus.Shutdown(context.Background())

	var mu sync.Mutex
	var received []int
	done := make(chan struct{})
	const total = 50

	err := eventbus.For[tick](bus.EventBus, "collector").Primary(func(ctx context.Context, e tick) error {
		mu.Lock()
		received = append(received, e.n)
		count := len(received)
		mu.Unlock()
		if count == total {
			close(done)
		}
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < total; i++ {
		require.NoError(t, bus.Post(context.Background(), tick{n: i}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, total)
	for i, n := range received {
		assert.Equal(t, i, n, "events must be delivered in post order for a single subscriber")
	}
}

func TestAsyncEventBus_IndependentSubscribersRunConcurrently(t *testing.T) {
	bus := eventbus.NewAsync("test-async-2", eventbus.WithAsyncWorkers(4))
	defer bus.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	block := func(ctx context.Context, e tick) error {
		started <- struct{}{}
		<-release
		return nil
	}

	require.NoError(t, eventbus.For[tick](bus.EventBus, "a").Primary(block))
	require.NoError(t, eventbus.For[tick](bus.EventBus, "b").Primary(block))

	require.NoError(t, bus.Post(context.Background(), tick{n: 1}))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first subscriber never started")
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("second subscriber never started concurrently with the first")
	}
	close(release)
}

func TestAsyncEventBus_PostDelayedFiresAfterDelay(t *testing.T) {
	bus := eventbus.NewAsync("test-async-3")
	defer bus.Shutdown(context.Background())

	fired := make(chan struct{})
	require.NoError(t, eventbus.For[tick](bus.EventBus, "delayed-listener").Primary(func(ctx context.Context, e tick) error {
		close(fired)
		return nil
	}))

	start := time.Now()
	_, err := bus.PostDelayed(context.Background(), tick{n: 7}, 30*time.Millisecond)
	require.NoError(t, err)

	select {
	case <-fired:
		assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("delayed event never fired")
	}
}

func TestAsyncEventBus_PostDelayedCancelPreventsDelivery(t *testing.T) {
	bus := eventbus.NewAsync("test-async-4")
	defer bus.Shutdown(context.Background())

	fired := make(chan struct{})
	require.NoError(t, eventbus.For[tick](bus.EventBus, "cancel-listener").Primary(func(ctx context.Context, e tick) error {
		close(fired)
		return nil
	}))

	cancel, err := bus.PostDelayed(context.Background(), tick{n: 9}, 50*time.Millisecond)
	require.NoError(t, err)
	cancel()

	select {
	case <-fired:
		t.Fatal("event fired after being cancelled")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestAsyncEventBus_ShutdownWaitsForInFlightWork(t *testing.T) {
	bus := eventbus.NewAsync("test-async-5", eventbus.WithAsyncWorkers(1))

	var completed bool
	var mu sync.Mutex
	require.NoError(t, eventbus.For[tick](bus.EventBus, "slow").Primary(func(ctx context.Context, e tick) error {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		completed = true
		mu.Unlock()
		return nil
	}))

	require.NoError(t, bus.Post(context.Background(), tick{n: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, completed)
}
