// SPDX-License-Identifier: MPL-2.0

package workerctx

import (
	"context"
	"sync"
)

// Trigger is an edge-triggered, idempotent signal: calling Set any number of
// times before the handler next runs results in exactly one run of the
// handler. This is the target-language equivalent of the source's "task
// trigger" abstraction, used for lists that accumulate work between passes
// (the resolver's register/unregister set and its update set).
type Trigger struct {
	mu      sync.Mutex
	set     bool
	running bool

	run func(context.Context)
	on  Context
	sch *Scheduler
}

// NewTrigger creates a trigger that, once Set, schedules run on the given
// scheduler as the given worker context.
func NewTrigger(sch *Scheduler, on Context, run func(context.Context)) *Trigger {
	return &Trigger{run: run, on: on, sch: sch}
}

// Set marks the trigger as pending and, if no run is currently scheduled or
// in flight, starts one. It is safe to call from any goroutine.
func (t *Trigger) Set(ctx context.Context) {
	t.mu.Lock()
	t.set = true
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()
	go t.loop(ctx)
}

func (t *Trigger) loop(ctx context.Context) {
	for {
		t.mu.Lock()
		if !t.set {
			t.running = false
			t.mu.Unlock()
			return
		}
		t.set = false
		t.mu.Unlock()

		t.sch.Run(ctx, t.on, t.run)
	}
}

// Disable is a testing-only hatch that prevents the trigger's handler from
// running even when Set is called. It is not used outside of tests.
func (t *Trigger) Disable() (resume func()) {
	t.mu.Lock()
	wasRunning := t.running
	t.running = true // pretend a run is already in flight to suppress scheduling
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.running = wasRunning
		t.mu.Unlock()
	}
}
