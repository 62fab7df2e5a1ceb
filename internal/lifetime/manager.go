// SPDX-License-Identifier: MPL-2.0

package lifetime

import (
	"context"
	"sync/atomic"

	"github.com/contrail-io/controlplane/internal/logging"
	"github.com/contrail-io/controlplane/internal/workerctx"
)

var log = logging.HCLogger().Named("lifetime")

// Gate lets a Manager's owner hold all destructions hostage to a
// process-wide readiness condition, such as a server-wide shutdown barrier.
// A Manager with no gate behaves as though MayDestroy always returns true.
type Gate interface {
	MayDestroy() bool
}

// GateFunc adapts a plain function to a Gate.
type GateFunc func() bool

// MayDestroy implements Gate.
func (f GateFunc) MayDestroy() bool { return f() }

type alwaysGate struct{}

func (alwaysGate) MayDestroy() bool { return true }

// Manager is a single-consumer work queue that serializes actor deletion
// processing onto one worker context, and applies an optional global gate
// before letting any actor finish destroying. All of an actor's cascade,
// shutdown, readiness checks, and Destroy calls happen inside this worker,
// never concurrently with another actor owned by the same Manager.
type Manager struct {
	gate      Gate
	queue     *workerctx.WorkQueue[*Actor]
	deferrals atomic.Int64
}

// NewManager creates a manager. If gate is nil, destruction is never
// globally blocked.
func NewManager(gate Gate) *Manager {
	if gate == nil {
		gate = alwaysGate{}
	}
	m := &Manager{gate: gate}
	m.queue = workerctx.NewWorkQueue(m.execute)
	return m
}

// Deferrals returns how many times this manager has deferred an actor's
// destruction because its gate returned false. Exposed for diagnosis only.
func (m *Manager) Deferrals() int64 {
	return m.deferrals.Load()
}

// SetQueueDisable is a testing-only hatch that pauses the manager's worker
// between entries, used with PauseDelete/ResumeDelete to quiesce the
// scheduler before poking at actor state directly from a test.
func (m *Manager) SetQueueDisable(disabled bool) {
	m.queue.SetDisabled(disabled)
}

// Shutdown stops the manager's worker. The manager must not be shut down
// while any actor it owns is still live; callers are expected to have
// already deleted and destroyed everything registered with it.
func (m *Manager) Shutdown() {
	m.queue.Shutdown()
}

// enqueue posts an actor whose refcount has already been incremented by the
// caller (Actor.Delete) on its behalf.
func (m *Manager) enqueue(a *Actor) {
	m.queue.Enqueue(a)
}

// enqueueNoIncrement posts an actor without taking a new reference, on the
// understanding that the caller (Actor.RetryDelete or Actor.DependencyRemove)
// already accounted for one.
func (m *Manager) enqueueNoIncrement(a *Actor) {
	m.queue.Enqueue(a)
}

// execute is the manager's per-entry executor, run once per dequeued actor
// on the manager's own worker goroutine.
func (m *Manager) execute(ctx context.Context, a *Actor) {
	a.runShutdownOnce()

	if !m.gate.MayDestroy() {
		// The reference this entry owns stays outstanding: we post a
		// fresh, no-increment entry so the accounting stays balanced
		// across the deferral.
		a.recordDeferral()
		total := m.deferrals.Add(1)
		log.Trace("deferring actor destruction: gate not ready", "total_deferrals", total)
		m.enqueueNoIncrement(a)
		return
	}

	if a.ReferenceDecrementAndTest() {
		a.finish()
	}
	// Otherwise the actor is not yet ready: it stays Deleted, awaiting a
	// DependencyRemove that empties its dependent list, or a RetryDelete /
	// RetryDeleteIfDeleted call, to re-enqueue it.
}
