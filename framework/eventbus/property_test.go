package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventcore/framework/eventbus"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type probeEvent struct{ id int }

// TestRetryExhaustionProperty validates that for any configured retry
// count r, a primary handler that always fails is invoked exactly r+1
// times and the resulting FailureContext reports TotalRetries() == r,
// classified RetryExhausted when r > 0 and ProcessingException when r == 0
// (a single failed attempt with no retries consumed is not a retry
// exhaustion).
func TestRetryExhaustionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("primary is invoked retries+1 times and totalRetries equals retries", prop.ForAll(
		func(retries int) bool {
			bus := eventbus.New("property-test")
			attempts := 0
			var fc *eventbus.FailureContext

			err := eventbus.For[probeEvent](bus, new(int)).
				Retry(retries, time.Microsecond).
				Failure(func(ctx context.Context, e probeEvent, f *eventbus.FailureContext) { fc = f }).
				Primary(func(ctx context.Context, e probeEvent) error {
					attempts++
					return errors.New("always fails")
				})
			if err != nil {
				return false
			}
			if postErr := bus.Post(context.Background(), probeEvent{id: retries}); postErr != nil {
				return false
			}
			if attempts != retries+1 {
				return false
			}
			if fc == nil || fc.TotalRetries() != retries {
				return false
			}
			if retries > 0 {
				return fc.Classification() == eventbus.RetryExhausted
			}
			return fc.Classification() == eventbus.ProcessingException
		},
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

// TestIdempotentSkipProperty validates that whenever the idempotency
// check returns false, the primary handler never runs regardless of how
// many times the event is posted.
func TestIdempotentSkipProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("primary never runs when idempotent returns false", prop.ForAll(
		func(postCount int) bool {
			bus := eventbus.New("property-test-2")
			primaryCalls := 0

			err := eventbus.For[probeEvent](bus, new(int)).
				Idempotent(func(ctx context.Context, e probeEvent) bool { return false }).
				Primary(func(ctx context.Context, e probeEvent) error {
					primaryCalls++
					return nil
				})
			if err != nil {
				return false
			}
			for i := 0; i < postCount; i++ {
				if err := bus.Post(context.Background(), probeEvent{id: i}); err != nil {
					return false
				}
			}
			return primaryCalls == 0
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
