package eventbus

import (
	"context"
	"log"
	"sort"
)

// Interceptor observes every dispatch that passes through a bus. The
// three hooks bracket the three-phase processor: BeforeProcessing runs
// when dispatch to a subscriber begins, ahead of the idempotency check,
// and exactly one of AfterProcessingSuccess or AfterProcessingFailure
// runs once the outcome is final (a skip by the idempotency check is
// reported through AfterProcessingSuccess). Interceptors with a lower Order run first on the way in and
// last on the way out, the usual chain-of-responsibility nesting.
//
// Interceptors must not panic and must not call back into the bus that
// invoked them; both are observability hooks, not additional handlers.
type Interceptor interface {
	Order() int
	BeforeProcessing(ctx context.Context, event any, ictx *InterceptorContext)
	AfterProcessingSuccess(ctx context.Context, event any, ictx *InterceptorContext)
	AfterProcessingFailure(ctx context.Context, event any, ictx *InterceptorContext, fc *FailureContext)
}

// InterceptorChain holds a fixed, order-sorted set of interceptors and
// runs them around a dispatch, isolating each one from a misbehaving
// neighbor with a recover.
type InterceptorChain struct {
	interceptors []Interceptor
}

// NewInterceptorChain builds a chain sorted ascending by Order. The input
// slice is copied; callers may reuse or discard it afterward.
func NewInterceptorChain(interceptors ...Interceptor) *InterceptorChain {
	sorted := make([]Interceptor, len(interceptors))
	copy(sorted, interceptors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})
	return &InterceptorChain{interceptors: sorted}
}

func (c *InterceptorChain) before(ctx context.Context, event any, ictx *InterceptorContext) {
	for _, i := range c.interceptors {
		i := i
		safeCall(func() { i.BeforeProcessing(ctx, event, ictx) })
	}
}

func (c *InterceptorChain) afterSuccess(ctx context.Context, event any, ictx *InterceptorContext) {
	for idx := len(c.interceptors) - 1; idx >= 0; idx-- {
		i := c.interceptors[idx]
		safeCall(func() { i.AfterProcessingSuccess(ctx, event, ictx) })
	}
}

func (c *InterceptorChain) afterFailure(ctx context.Context, event any, ictx *InterceptorContext, fc *FailureContext) {
	for idx := len(c.interceptors) - 1; idx >= 0; idx-- {
		i := c.interceptors[idx]
		safeCall(func() { i.AfterProcessingFailure(ctx, event, ictx, fc) })
	}
}

func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus: interceptor panic recovered: %v", r)
		}
	}()
	fn()
}
