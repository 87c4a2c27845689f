// Package eventbus implements an in-process publish/subscribe bus with a
// three-phase delivery model (idempotency check, primary handler with
// retry, terminal failure handler) and an ordered interceptor chain.
package eventbus

// Any is the universal event type. A listener registered against Any
// receives every event posted to the bus, the same role interface{}
// plays as a catch-all supertype for dispatch purposes.
type Any = any

// DeadEvent wraps an event that had no subscriber at post time. Register
// a listener for DeadEvent to observe events nobody is listening for.
type DeadEvent struct {
	// Source is the original event that could not be delivered.
	Source any
}
