package eventbus

import (
	"context"
	"log"
	"sync"
	"time"
)

// delayedScheduler backs PostDelayed with its own small worker pool,
// kept separate from the bus's dispatch pool so a flood of delayed
// timers firing at once cannot starve ordinary dispatch.
type delayedScheduler struct {
	mu      sync.Mutex
	pending map[uint64]*time.Timer
	nextID  uint64
	workers *workerPool
	bus     *AsyncEventBus
}

func newDelayedScheduler(cfg DelayedConfig, bus *AsyncEventBus) *delayedScheduler {
	workers := cfg.CoreWorkers
	if workers <= 0 {
		workers = DefaultDelayedWorkers
	}
	prefix := cfg.ThreadNamePrefix
	if prefix == "" {
		prefix = "eventbus-delayed-"
	}
	return &delayedScheduler{
		pending: make(map[uint64]*time.Timer),
		workers: newWorkerPool(workers, prefix),
		bus:     bus,
	}
}

func (s *delayedScheduler) schedule(ctx context.Context, event any, delay time.Duration) CancelFunc {
	s.mu.Lock()
	id := s.nextID
	s.nextID++

	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()

		s.workers.submit(func() {
			if err := s.bus.Post(ctx, event); err != nil {
				log.Printf("eventbus: delayed post of %T failed: %v", event, err)
			}
		})
	})
	s.pending[id] = timer
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if t, ok := s.pending[id]; ok {
			t.Stop()
			delete(s.pending, id)
		}
		s.mu.Unlock()
	}
}

// shutdown cancels every timer that has not yet fired and waits up to 5
// seconds for already-fired delayed posts to drain from the pool.
func (s *delayedScheduler) shutdown(ctx context.Context) error {
	s.mu.Lock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wrapShutdownErr(s.workers.shutdown(shutdownCtx))
}
