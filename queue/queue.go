// Package queue implements a serial execution Queue: work items submitted
// from any number of goroutines are executed one at a time, in submission
// order, by a single dedicated worker goroutine.
package queue

import (
	"sync"

	"github.com/pkg/errors"
	"go.feedcache.dev/core/metrics"
)

// ErrClosed is returned by Submit after the Queue has been closed.
var ErrClosed = errors.New("queue is closed")

// Queue executes submitted work items serially, in FIFO order.
//
// Submit never blocks on the execution of other work items: the Queue is
// unbounded. The order in which work items execute is exactly the order in
// which their Submit calls were serialized, even when Submit is invoked
// concurrently. A work item never runs concurrently with another work item
// of the same Queue.
type Queue struct {
	name   string
	items  []func()      // Submitted, not-yet-started work items.
	closed bool          // Set on Close. No further items are accepted.
	mu     sync.Mutex    // Guards |items| and |closed|.
	wakeCh chan struct{} // Signals the worker of new items or of Close.
	doneCh chan struct{} // Closed when the worker exits.
}

// New returns a Queue having the given name, which is used to label metrics,
// and starts its worker goroutine.
func New(name string) *Queue {
	var q = &Queue{
		name:   name,
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
	}
	go q.serve()
	return q
}

// Submit the work item |fn| for execution. Submit returns immediately, and
// returns ErrClosed (without executing |fn|) if the Queue has been closed.
func (q *Queue) Submit(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, fn)
	metrics.QueueDepth.WithLabelValues(q.name).Inc()
	q.mu.Unlock()

	q.wake()
	return nil
}

// Len returns the number of submitted work items which have not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close the Queue. Work items submitted prior to Close are executed, and Close
// blocks until the last of them completes and the worker exits. Close must not
// be called from within a work item of the Queue (it would never return).
// Close may be called more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
	<-q.doneCh
}

// Done selects when the Queue has closed and its worker has exited.
func (q *Queue) Done() <-chan struct{} { return q.doneCh }

func (q *Queue) wake() {
	select {
	case q.wakeCh <- struct{}{}:
	default: // Worker is already signaled.
	}
}

func (q *Queue) serve() {
	defer close(q.doneCh)

	for {
		q.mu.Lock()
		for len(q.items) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wakeCh
			q.mu.Lock()
		}
		var fn = q.items[0]
		q.items[0] = nil // Release for GC.
		q.items = q.items[1:]
		q.mu.Unlock()

		metrics.QueueDepth.WithLabelValues(q.name).Dec()
		fn()
		metrics.QueueExecutedItemsTotal.WithLabelValues(q.name).Inc()
	}
}
