// SPDX-License-Identifier: MPL-2.0

package workerctx

import (
	"context"
	"sync"
)

// WorkQueue is a single-consumer FIFO of entries of type T, drained one
// entry per step by a worker goroutine that runs a caller-supplied executor.
// This is the target-language equivalent of the source's "work queue"
// abstraction, used by the lifetime manager to serialize actor processing
// onto its own worker context.
type WorkQueue[T any] struct {
	ctx      context.Context
	cancel   context.CancelFunc
	entries  chan T
	execute  func(context.Context, T)
	done     chan struct{}

	gateMu     sync.Mutex
	gateClosed bool
	gate       chan struct{} // holds one token while enabled; empty while disabled
}

// NewWorkQueue creates a work queue whose worker goroutine calls execute for
// each entry, in the order entries were posted. The queue starts draining
// immediately.
func NewWorkQueue[T any](execute func(context.Context, T)) *WorkQueue[T] {
	ctx, cancel := context.WithCancel(context.Background())
	q := &WorkQueue[T]{
		ctx:     ctx,
		cancel:  cancel,
		entries: make(chan T, 1024),
		execute: execute,
		done:    make(chan struct{}),
		gate:    make(chan struct{}, 1),
	}
	q.gate <- struct{}{}
	go q.drain()
	return q
}

func (q *WorkQueue[T]) drain() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case e := <-q.entries:
			select {
			case <-q.ctx.Done():
				return
			case <-q.gate:
				q.execute(q.ctx, e)
				q.gate <- struct{}{}
			}
		}
	}
}

// SetDisabled is the target-language form of the source's SetQueueDisable
// testing hatch: while disabled, the drain loop stops consuming entries
// between steps (an entry already in progress still finishes) but nothing
// posted via Enqueue is lost. Not used outside of tests.
func (q *WorkQueue[T]) SetDisabled(disabled bool) {
	q.gateMu.Lock()
	defer q.gateMu.Unlock()
	if disabled == q.gateClosed {
		return
	}
	q.gateClosed = disabled
	if disabled {
		<-q.gate
	} else {
		q.gate <- struct{}{}
	}
}

// Enqueue posts an entry. Safe to call from any goroutine. Entries are
// buffered in a channel of capacity 1024; Enqueue blocks while that buffer
// is full. Every entry has already had its accounting, e.g. a refcount
// increment, done by the caller before Enqueue is called.
func (q *WorkQueue[T]) Enqueue(e T) {
	q.entries <- e
}

// Shutdown stops the worker goroutine and waits for its current entry, if
// any, to finish. The queue must not be shut down while any of its owned
// actors are still live.
func (q *WorkQueue[T]) Shutdown() {
	q.cancel()
	<-q.done
}
