// Package tasks runs best-effort side effects (audit appends, attachment
// cleanup) off the request path. A task's failure is logged and counted,
// never returned to the code that dispatched it.
package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/metrics"
)

const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomePanic   = "panic"
	outcomeDropped = "dropped"
)

type task struct {
	name string
	fn   func(context.Context) error
}

// Queue is a fixed pool of workers reading from a bounded channel.
type Queue struct {
	logger  logging.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	work   chan task

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue starts workers goroutines. Tasks run with a context derived from
// the queue, not from the dispatching request, so they outlive the response.
func NewQueue(workers, capacity int, timeout time.Duration, logger logging.Logger, m *metrics.Metrics) *Queue {
	if workers < 1 {
		workers = 1
	}
	if capacity < workers {
		capacity = workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		logger:  logger.With("module", "tasks"),
		metrics: m,
		timeout: timeout,
		work:    make(chan task, capacity),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker()
		}()
	}
	go func() {
		wg.Wait()
		close(q.done)
	}()

	return q
}

// Dispatch enqueues fn without blocking. It reports false, after logging,
// when the queue is full or shut down.
func (q *Queue) Dispatch(name string, fn func(context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(name, "queue closed")
		return false
	}

	select {
	case q.work <- task{name: name, fn: fn}:
		return true
	default:
		q.drop(name, "queue full")
		return false
	}
}

func (q *Queue) drop(name, reason string) {
	q.logger.Warn(q.ctx, "background task dropped", "task", name, "reason", reason)
	q.metrics.TaskOutcome(name, outcomeDropped)
}

// Shutdown stops accepting tasks and waits up to timeout for queued ones
// to finish. Tasks still running after that have their context cancelled.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.work)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-time.After(timeout):
		q.cancel()
		return fmt.Errorf("task queue shutdown timed out after %v", timeout)
	}
}

func (q *Queue) worker() {
	for t := range q.work {
		q.run(t)
	}
}

func (q *Queue) run(t task) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error(ctx, "background task panicked", "task", t.name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			q.metrics.TaskOutcome(t.name, outcomePanic)
		}
	}()

	if err := t.fn(ctx); err != nil {
		q.logger.Error(ctx, "background task failed", "task", t.name, "err", err)
		q.metrics.TaskOutcome(t.name, outcomeFailed)
		return
	}
	q.metrics.TaskOutcome(t.name, outcomeOK)
}
