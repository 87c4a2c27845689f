package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultAsyncWorkers is the size of the bounded worker pool an
// AsyncEventBus creates for itself unless WithExecutor supplies one.
const DefaultAsyncWorkers = 10

// DefaultDelayedWorkers is the size of the delayed scheduler's own pool,
// kept small and separate from the dispatch pool since its job is only
// to fire a timer and hand the event back to Post.
const DefaultDelayedWorkers = 2

// CancelFunc cancels a pending delayed post. Calling it after the post
// has already fired has no effect.
type CancelFunc func()

// DelayedConfig configures the goroutine pool backing PostDelayed.
type DelayedConfig struct {
	CoreWorkers      int
	ThreadNamePrefix string
}

// AsyncOption configures an AsyncEventBus at construction time.
type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	busOpts []Option
	workers int
	delayed DelayedConfig
	pool    taskRunner
}

// WithAsyncWorkers overrides DefaultAsyncWorkers.
func WithAsyncWorkers(n int) AsyncOption {
	return func(c *asyncConfig) { c.workers = n }
}

// WithBusOptions forwards options to the embedded synchronous EventBus
// (interceptors, exception handler, subscriber limit).
func WithBusOptions(opts ...Option) AsyncOption {
	return func(c *asyncConfig) { c.busOpts = append(c.busOpts, opts...) }
}

// WithDelayedConfig overrides the delayed scheduler's worker pool size
// and goroutine name prefix.
func WithDelayedConfig(cfg DelayedConfig) AsyncOption {
	return func(c *asyncConfig) { c.delayed = cfg }
}

// WithExecutor submits dispatch tasks through submit instead of a pool
// the bus manages itself. The bus will never shut down a pool supplied
// this way; the caller owns its lifecycle. FIFO ordering per subscriber
// is preserved regardless of how submit schedules work.
func WithExecutor(submit func(task func())) AsyncOption {
	return func(c *asyncConfig) { c.pool = externalRunner{fn: submit} }
}

// AsyncEventBus dispatches each subscriber's deliveries on a dedicated
// FIFO lane backed by a bounded worker pool, so events for one
// subscriber are never reordered while unrelated subscribers proceed
// concurrently. It additionally supports scheduling an event to be
// posted after a delay.
type AsyncEventBus struct {
	*EventBus
	pool         taskRunner
	externalPool bool
	lanes        *laneTable
	delayedCfg   DelayedConfig
	delayedOnce  sync.Once
	delayed      *delayedScheduler
	running      atomic.Bool
}

// NewAsync creates an AsyncEventBus identified by name.
func NewAsync(identifier string, opts ...AsyncOption) *AsyncEventBus {
	cfg := asyncConfig{
		workers: DefaultAsyncWorkers,
		delayed: DelayedConfig{
			CoreWorkers:      DefaultDelayedWorkers,
			ThreadNamePrefix: identifier + "-delayed-",
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	base := New(identifier, cfg.busOpts...)

	pool := cfg.pool
	externalPool := pool != nil
	if pool == nil {
		pool = newWorkerPool(cfg.workers, identifier+"-worker-")
	}

	lanes := newLaneTable()
	base.dispatcher = &asyncDispatcher{processor: base.processor, lanes: lanes, pool: pool}

	b := &AsyncEventBus{
		EventBus:     base,
		pool:         pool,
		externalPool: externalPool,
		lanes:        lanes,
		delayedCfg:   cfg.delayed,
	}
	b.running.Store(true)
	return b
}

// Post dispatches event to each subscriber's lane and returns once every
// matching subscriber has been enqueued; delivery itself happens
// asynchronously. No reentrant queueing is needed here, unlike the
// synchronous bus: enqueuing onto independent lanes never recurses.
func (b *AsyncEventBus) Post(ctx context.Context, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subs := b.registry.lookup(event)
	if len(subs) == 0 {
		if _, isDead := event.(DeadEvent); !isDead {
			return b.Post(ctx, DeadEvent{Source: event})
		}
		return nil
	}
	b.dispatcher.Dispatch(ctx, subs, event)
	return nil
}

// PostDelayed schedules event to be posted after delay elapses, returning
// a CancelFunc that prevents the post if called before the timer fires.
// A non-positive delay posts immediately and returns a no-op CancelFunc.
func (b *AsyncEventBus) PostDelayed(ctx context.Context, event any, delay time.Duration) (CancelFunc, error) {
	if delay <= 0 {
		return func() {}, b.Post(ctx, event)
	}
	b.delayedOnce.Do(func() {
		b.delayed = newDelayedScheduler(b.delayedCfg, b)
	})
	return b.delayed.schedule(ctx, event, delay), nil
}

// Start satisfies core.Lifecycle; the worker pool is already running
// once NewAsync returns, so Start only flips the running flag.
func (b *AsyncEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	return nil
}

// Stop is an alias for Shutdown, satisfying core.Lifecycle.
func (b *AsyncEventBus) Stop(ctx context.Context) error {
	return b.Shutdown(ctx)
}

// IsRunning satisfies core.Lifecycle.
func (b *AsyncEventBus) IsRunning() bool {
	return b.running.Load()
}

// HealthCheck satisfies core.HealthCheckable, reporting unhealthy once the
// bus has been shut down.
func (b *AsyncEventBus) HealthCheck(ctx context.Context) error {
	if !b.running.Load() {
		return fmt.Errorf("eventbus: %s is not running", b.Name())
	}
	return nil
}

// Shutdown cancels any pending delayed posts and, if this bus owns its
// worker pool, waits for in-flight lane tasks to finish or ctx to expire,
// whichever comes first. A pool supplied via WithExecutor is left
// running: its owner is responsible for stopping it.
func (b *AsyncEventBus) Shutdown(ctx context.Context) error {
	b.running.Store(false)
	if b.delayed != nil {
		_ = b.delayed.shutdown(ctx)
	}
	if b.externalPool {
		return nil
	}
	return wrapShutdownErr(b.pool.shutdown(ctx))
}
