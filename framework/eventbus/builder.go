package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// HandlerGroupBuilder accumulates one listener's handling policy for the
// event type E before Primary finalizes and registers it. It is the
// generics-based substitute for annotation-driven handler discovery:
// the compiler enforces that every handler in the chain agrees on E.
type HandlerGroupBuilder[E any] struct {
	bus            *EventBus
	listener       any
	eventType      reflect.Type
	idempotent     idempotentFunc
	failure        failureFunc
	retry          *RetryPolicy
	concurrentSafe bool
	err            error
}

// For begins registering a handler group for event type E against bus,
// identified by listener (its pointer or value identity is used to
// detect duplicate registrations and to support Unregister).
func For[E any](bus *EventBus, listener any) *HandlerGroupBuilder[E] {
	var zero E
	return &HandlerGroupBuilder[E]{
		bus:       bus,
		listener:  listener,
		eventType: reflect.TypeOf(&zero).Elem(),
	}
}

// ForInterface begins registering a handler group keyed by an interface
// type I rather than a concrete event type. It behaves identically to
// For; the separate name documents intent at call sites where E is a
// supertype several concrete events implement.
func ForInterface[I any](bus *EventBus, listener any) *HandlerGroupBuilder[I] {
	return For[I](bus, listener)
}

// Idempotent installs a predicate run before the primary handler. It
// returning false skips this subscriber for the current event entirely
// (no retry, no failure handler, reported as skipped to interceptors).
func (b *HandlerGroupBuilder[E]) Idempotent(fn func(ctx context.Context, event E) bool) *HandlerGroupBuilder[E] {
	b.idempotent = func(ctx context.Context, event any) bool {
		return fn(ctx, event.(E))
	}
	return b
}

// Retry configures the primary handler to be retried up to retries
// additional times, waiting interval between attempts, before the
// dispatch is classified RetryExhausted.
func (b *HandlerGroupBuilder[E]) Retry(retries int, interval time.Duration) *HandlerGroupBuilder[E] {
	if retries < 0 {
		b.err = fmt.Errorf("eventbus: retry count must be >= 0, got %d", retries)
		return b
	}
	b.retry = &RetryPolicy{Retries: retries, Interval: interval}
	return b
}

// ConcurrentSafe declares that the primary handler may run concurrently
// with itself. Without it, the bus serializes deliveries to this
// subscriber with a per-subscriber lock.
func (b *HandlerGroupBuilder[E]) ConcurrentSafe() *HandlerGroupBuilder[E] {
	b.concurrentSafe = true
	return b
}

// Failure installs the terminal failure handler, accepted either as
// func(context.Context, E) or func(context.Context, E, *FailureContext).
// An incompatible signature is rejected here, synchronously, rather than
// deferred to dispatch time.
func (b *HandlerGroupBuilder[E]) Failure(fn any) *HandlerGroupBuilder[E] {
	wrapped, err := wrapFailureFunc[E](fn)
	if err != nil {
		b.err = err
		return b
	}
	b.failure = wrapped
	return b
}

// Primary finalizes the group with its mandatory primary handler and
// registers it on the bus. It returns any error accumulated by an
// earlier builder call, or one raised by registration itself (a
// duplicate listener, or the bus's subscriber-count limit).
func (b *HandlerGroupBuilder[E]) Primary(fn func(ctx context.Context, event E) error) error {
	if b.err != nil {
		return b.err
	}
	if fn == nil {
		return fmt.Errorf("eventbus: primary handler must not be nil")
	}
	if !reflect.TypeOf(b.listener).Comparable() {
		return fmt.Errorf("eventbus: listener of type %T is not comparable; register with a pointer receiver", b.listener)
	}
	group := &HandlerGroup{
		listenerKey: b.listener,
		eventType:   b.eventType,
		primary: func(ctx context.Context, event any) error {
			return fn(ctx, event.(E))
		},
		idempotent:     b.idempotent,
		failure:        b.failure,
		retry:          b.retry,
		concurrentSafe: b.concurrentSafe,
	}
	return b.bus.registry.register(group)
}

func wrapFailureFunc[E any](fn any) (failureFunc, error) {
	if fn == nil {
		return nil, fmt.Errorf("eventbus: failure handler must not be nil")
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("eventbus: failure handler must be a function, got %T", fn)
	}

	var zero E
	eventType := reflect.TypeOf(&zero).Elem()
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()

	switch t.NumIn() {
	case 2:
		if t.In(0) != ctxType || t.In(1) != eventType {
			return nil, fmt.Errorf("eventbus: failure handler must be func(context.Context, %s)", eventType)
		}
		return func(ctx context.Context, event any, fc *FailureContext) {
			v.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(event)})
		}, nil
	case 3:
		fcType := reflect.TypeOf((*FailureContext)(nil))
		if t.In(0) != ctxType || t.In(1) != eventType || t.In(2) != fcType {
			return nil, fmt.Errorf("eventbus: failure handler must be func(context.Context, %s, *eventbus.FailureContext)", eventType)
		}
		return func(ctx context.Context, event any, fc *FailureContext) {
			v.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(event), reflect.ValueOf(fc)})
		}, nil
	default:
		return nil, fmt.Errorf("eventbus: failure handler must take (context.Context, %s) or (context.Context, %s, *eventbus.FailureContext)", eventType, eventType)
	}
}
