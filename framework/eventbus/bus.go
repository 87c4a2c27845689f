package eventbus

import (
	"context"
	"sync"

	"eventcore/framework/core"
)

// DefaultMaxSubscribersPerEvent bounds how many listeners a single event
// type (or supertype) may accumulate on one bus, guarding against a
// registration leak silently growing dispatch fan-out without limit.
const DefaultMaxSubscribersPerEvent = 1000

// Option configures an EventBus at construction time.
type Option func(*EventBus)

// WithInterceptors replaces the bus's interceptor chain. Interceptors run
// in ascending Order on the way in and descending Order on the way out.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(b *EventBus) { b.interceptors = NewInterceptorChain(interceptors...) }
}

// WithExceptionHandler replaces the bus-wide backstop invoked after every
// terminal dispatch failure.
func WithExceptionHandler(h SubscriberExceptionHandler) Option {
	return func(b *EventBus) { b.exceptionHandler = h }
}

// WithMaxSubscribersPerEvent overrides DefaultMaxSubscribersPerEvent. A
// value <= 0 disables the limit.
func WithMaxSubscribersPerEvent(n int) Option {
	return func(b *EventBus) { b.maxSubscribersPerEvent = n }
}

// EventBus is a synchronous, reentrant, in-process event dispatcher.
// Post delivers an event to every subscriber of its concrete type, every
// interface type it implements that has subscribers, and any subscriber
// of Any, before returning. Posting from within a handler is supported:
// the nested event is queued and drained breadth-first on the same
// goroutine, rather than growing the call stack, by threading dispatch
// state through the context instead of relying on goroutine-local state.
type EventBus struct {
	identifier             string
	registry               *registry
	interceptors           *InterceptorChain
	exceptionHandler       SubscriberExceptionHandler
	maxSubscribersPerEvent int
	processor              *processor
	dispatcher             Dispatcher
}

// New creates a synchronous EventBus identified by name, applying opts in
// order.
func New(identifier string, opts ...Option) *EventBus {
	b := &EventBus{
		identifier:             identifier,
		interceptors:           NewInterceptorChain(),
		exceptionHandler:       DefaultSubscriberExceptionHandler{},
		maxSubscribersPerEvent: DefaultMaxSubscribersPerEvent,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.registry = newRegistry(b.maxSubscribersPerEvent)
	b.processor = &processor{
		chain:            b.interceptors,
		exceptionHandler: b.exceptionHandler,
		busIdentifier:    b.identifier,
	}
	b.dispatcher = &syncDispatcher{processor: b.processor}
	return b
}

// Identifier returns the name this bus was created with.
func (b *EventBus) Identifier() string { return b.identifier }

// Name identifies this bus as a core.Component.
func (b *EventBus) Name() string { return b.identifier }

// Type reports this bus as a core.Component of module kind.
func (b *EventBus) Type() core.ComponentType { return core.ComponentTypeModule }

// Unregister removes every handler group registered by listener across
// all event types. It returns an error if listener was never registered.
func (b *EventBus) Unregister(listener any) error {
	return b.registry.unregister(listener)
}

// Post dispatches event synchronously to every interested subscriber,
// running each subscriber's full three-phase pipeline (and any
// interceptors) before returning. If no subscriber is registered for
// event's type, a DeadEvent wrapping it is posted instead. Posting while
// already inside a Post on the same call chain queues the nested event
// for delivery once the outer event's own subscribers have all run.
func (b *EventBus) Post(ctx context.Context, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if v := ctx.Value(dispatchStateKey{}); v != nil {
		state := v.(*dispatchState)
		state.mu.Lock()
		state.queue = append(state.queue, event)
		state.mu.Unlock()
		return nil
	}

	state := &dispatchState{queue: []any{event}}
	dctx := context.WithValue(ctx, dispatchStateKey{}, state)
	for {
		state.mu.Lock()
		if len(state.queue) == 0 {
			state.mu.Unlock()
			break
		}
		next := state.queue[0]
		state.queue = state.queue[1:]
		state.mu.Unlock()

		b.dispatchOne(dctx, next)
	}
	return nil
}

func (b *EventBus) dispatchOne(ctx context.Context, event any) {
	subs := b.registry.lookup(event)
	if len(subs) == 0 {
		if _, isDead := event.(DeadEvent); !isDead {
			b.dispatchOne(ctx, DeadEvent{Source: event})
		}
		return
	}
	b.dispatcher.Dispatch(ctx, subs, event)
}

type dispatchStateKey struct{}

// dispatchState is the per-top-level-Post queue threaded through context
// so reentrant Post calls append to it instead of recursing, giving
// breadth-first delivery without depending on goroutine-local storage.
type dispatchState struct {
	mu    sync.Mutex
	queue []any
}
