package eventbus

import (
	"context"
	"reflect"
	"sync"
	"time"
)

type primaryFunc func(ctx context.Context, event any) error
type idempotentFunc func(ctx context.Context, event any) bool
type failureFunc func(ctx context.Context, event any, fc *FailureContext)

// RetryPolicy configures how many times, and how far apart, the primary
// handler is retried after an error before the dispatch is considered a
// permanent failure.
type RetryPolicy struct {
	Retries  int
	Interval time.Duration
}

// HandlerGroup is the finished, immutable registration produced by a
// HandlerGroupBuilder: one listener's idempotency check, primary handler,
// failure handler and retry policy for a single event type.
type HandlerGroup struct {
	listenerKey    any
	eventType      reflect.Type
	primary        primaryFunc
	idempotent     idempotentFunc
	failure        failureFunc
	retry          *RetryPolicy
	concurrentSafe bool
}

// Subscriber is the registry's unit of dispatch: a HandlerGroup plus the
// serialization lock used when the group was not declared ConcurrentSafe.
type Subscriber struct {
	group *HandlerGroup
	mu    sync.Mutex
}
