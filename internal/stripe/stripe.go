// Package stripe runs tasks on a fixed set of workers, choosing the worker by
// key, so tasks with the same key run one after another in submission order
// while different keys proceed in parallel.
//
// Typical use-case: event listeners, where events of one partition must be
// seen in order but partitions are independent.
package stripe

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("stripe: executor closed")

// Option configures an Executor.
type Option func(*config)

type config struct {
	workers    int
	bufferSize int
}

// WithWorkers sets the number of workers (default: 8).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithBufferSize sets the task buffer per worker (default: 256).
func WithBufferSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

type Executor struct {
	mu      sync.RWMutex
	closed  bool
	workers []chan func()
	wg      sync.WaitGroup
}

func New(opts ...Option) *Executor {
	cfg := &config{workers: 8, bufferSize: 256}
	for _, opt := range opts {
		opt(cfg)
	}
	e := &Executor{workers: make([]chan func(), cfg.workers)}
	for i := range e.workers {
		ch := make(chan func(), cfg.bufferSize)
		e.workers[i] = ch
		e.wg.Add(1)
		go e.run(ch)
	}
	return e
}

func (e *Executor) run(tasks <-chan func()) {
	defer e.wg.Done()
	for fn := range tasks {
		fn()
	}
}

// Workers returns the number of stripes.
func (e *Executor) Workers() int { return len(e.workers) }

// Submit queues fn on the worker owning key. It blocks while that worker's
// buffer is full, until ctx is done.
func (e *Executor) Submit(ctx context.Context, key uint64, fn func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	ch := e.workers[key%uint64(len(e.workers))]
	select {
	case ch <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, runs everything already queued and waits for
// the workers to exit.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, ch := range e.workers {
		close(ch)
	}
	e.mu.Unlock()
	e.wg.Wait()
}
