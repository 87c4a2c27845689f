package eventbus

import (
	"context"
	"log"
	"runtime/pprof"
	"strconv"
	"sync"
)

// taskRunner is the narrow interface the async dispatcher and the
// delayed scheduler need from whatever runs their submitted work: either
// the bus's own bounded pool, or a pool supplied by the caller via
// WithExecutor, which the bus will never shut down.
type taskRunner interface {
	submit(task func())
	shutdown(ctx context.Context) error
}

// workerPool is a fixed-size pool of named goroutines draining a shared
// task channel, the same shape as the teacher framework's
// AsyncEventPublisher worker loop, generalized from one fixed queue of
// events to arbitrary submitted closures.
type workerPool struct {
	tasks      chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	namePrefix string
}

func newWorkerPool(workers int, namePrefix string) *workerPool {
	p := &workerPool{
		tasks:      make(chan func(), 256),
		done:       make(chan struct{}),
		namePrefix: namePrefix,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *workerPool) run(index int) {
	defer p.wg.Done()
	labels := pprof.Labels("eventbus.worker", workerName(p.namePrefix, index))
	pprof.Do(context.Background(), labels, func(context.Context) {
		for {
			select {
			case task, ok := <-p.tasks:
				if !ok {
					return
				}
				p.runTask(task)
			case <-p.done:
				// Drain whatever was already queued before this worker
				// exits, so shutdown does not drop buffered tasks that
				// lost the race with close(done).
				p.drainRemaining()
				return
			}
		}
	})
}

func (p *workerPool) drainRemaining() {
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(task)
		default:
			return
		}
	}
}

func (p *workerPool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus: worker task panicked: %v", r)
		}
	}()
	task()
}

func (p *workerPool) submit(task func()) {
	select {
	case p.tasks <- task:
	case <-p.done:
	}
}

func (p *workerPool) shutdown(ctx context.Context) error {
	close(p.done)
	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func workerName(prefix string, index int) string {
	return prefix + strconv.Itoa(index)
}

// externalRunner adapts a caller-supplied submission function to
// taskRunner. Its shutdown is a no-op: the bus never owns, and therefore
// never closes, a pool it did not create.
type externalRunner struct {
	fn func(func())
}

func (r externalRunner) submit(task func())              { r.fn(task) }
func (r externalRunner) shutdown(ctx context.Context) error { return nil }
