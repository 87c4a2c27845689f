package eventbus

import (
	"log"
	"reflect"
)

// SubscriberExceptionContext describes the dispatch that produced an
// uncaught exception, passed to a SubscriberExceptionHandler after the
// failure handler (if any) has already run.
type SubscriberExceptionContext struct {
	Bus         string
	Event       any
	ListenerKey any
	EventType   reflect.Type
}

// SubscriberExceptionHandler is the bus-wide backstop invoked once a
// dispatch reaches a terminal failure, whether or not the subscriber
// registered its own failure handler. Implementations must not panic.
type SubscriberExceptionHandler interface {
	Handle(cause error, sctx SubscriberExceptionContext)
}

// DefaultSubscriberExceptionHandler logs the failure the same way the
// rest of this package logs recovered panics and swallows nothing.
type DefaultSubscriberExceptionHandler struct{}

// Handle logs the uncaught exception.
func (DefaultSubscriberExceptionHandler) Handle(cause error, sctx SubscriberExceptionContext) {
	log.Printf("eventbus[%s]: uncaught exception dispatching %s: %v", sctx.Bus, sctx.EventType, cause)
}
