// SPDX-License-Identifier: MPL-2.0

package lifetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Hooks is the contract a concrete object provides to participate in the
// framework. An object embeds an *Actor built from a Hooks implementation;
// the Actor drives the Hooks methods at the right points in the delete
// state machine.
//
// MayDelete must be pure and side-effect-free: the manager may call it any
// number of times, including while holding the actor's own mutex, so it
// must not block or attempt to re-enter the actor.
//
// Shutdown may run more than once (once per pass of the manager's executor
// over the actor, including the pass that goes on to destroy it) and must be
// idempotent. DeleteComplete and
// Destroy each run at most once, immediately before the underlying object
// is released; Destroy must be the last observable effect of deletion.
type Hooks interface {
	MayDelete() bool
	Shutdown()
	DeleteComplete()
	Destroy()
}

// state is the actor's position in the one-way lifecycle state machine
// described in the framework's design notes. Transitions only ever move
// forward through this list.
type state int32

const (
	stateLive state = iota
	stateDeleted
	stateShutdownInvoked
	stateDestroyed
)

// Actor is the per-object lifetime controller embedded (by reference) in
// every managed object. It holds the dependent list, the lightweight
// refcount, and the delete state machine; the manager it is registered with
// drives the machine forward on its own worker context.
type Actor struct {
	hooks   Hooks
	manager *Manager

	mu         sync.Mutex
	dependents *DependencyList[*Ref]
	refcount   int
	state      state
	pauseCount int // >0 while PauseDelete is in effect; testing only

	deleted         atomic.Bool
	shutdownInvoked bool
	deleteComplete  bool

	deferrals atomic.Int64

	createdAt     time.Time
	firstDeleteAt time.Time
}

// NewActor creates an actor for hooks, registered with manager. The actor
// starts Live and may accept dependents immediately.
func NewActor(manager *Manager, hooks Hooks) *Actor {
	a := &Actor{
		hooks:     hooks,
		manager:   manager,
		createdAt: time.Now(),
	}
	a.dependents = NewDependencyList[*Ref](&a.mu)
	return a
}

// IsDeleted reports whether Delete has been observed, without blocking. Safe
// to call from any goroutine.
func (a *Actor) IsDeleted() bool {
	return a.deleted.Load()
}

// IsDestroyed reports whether Destroy has already run.
func (a *Actor) IsDestroyed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == stateDestroyed
}

// DeferralCount returns how many times the manager has deferred destruction
// of this actor because MayDestroy (the manager-wide gate) was false. It is
// exposed only for diagnosis.
func (a *Actor) DeferralCount() int64 {
	return a.deferrals.Load()
}

// CreatedAt and FirstDeletedAt report the two timestamps the framework
// tracks for diagnostic purposes.
func (a *Actor) CreatedAt() time.Time     { return a.createdAt }
func (a *Actor) FirstDeletedAt() time.Time { return a.firstDeleteAt }

// Delete requests deletion of the actor. The first call transitions
// Live->Deleted, stamps the delete timestamp, takes a reference on behalf of
// the queue entry it posts, and enqueues the actor for processing on the
// manager's worker context. Subsequent calls return immediately. Callable
// from any goroutine.
func (a *Actor) Delete() {
	if !a.deleted.CompareAndSwap(false, true) {
		return
	}
	a.mu.Lock()
	a.firstDeleteAt = time.Now()
	a.state = stateDeleted
	a.refcount++
	a.mu.Unlock()
	a.manager.enqueue(a)
}

// RetryDelete re-enqueues the actor for processing without taking a new
// reference, on the assumption that the caller already holds a logical
// reference accounted for elsewhere (for example, because it owns one of
// the manager-queue entries already in flight). Precondition: the actor
// must already be Deleted; calling RetryDelete on a Live actor panics, since
// that is a caller bug rather than a transient condition. Callable from any
// goroutine.
func (a *Actor) RetryDelete() {
	if !a.deleted.Load() {
		panic("lifetime: RetryDelete called before Delete")
	}
	a.manager.enqueueNoIncrement(a)
}

// PauseDelete and ResumeDelete are testing-only hatches that must only be
// called with the manager's worker contexts quiesced. While paused,
// ReferenceDecrementAndTest always reports false, so the actor can never
// reach ReadyToDestroy no matter how its refcount and dependents evolve.
func (a *Actor) PauseDelete() {
	a.mu.Lock()
	a.pauseCount++
	a.mu.Unlock()
}

func (a *Actor) ResumeDelete() {
	a.mu.Lock()
	if a.pauseCount > 0 {
		a.pauseCount--
	}
	paused := a.pauseCount > 0
	a.mu.Unlock()
	if !paused {
		a.RetryDeleteIfDeleted()
	}
}

// RetryDeleteIfDeleted nudges the state machine forward if the actor has
// already been asked to delete, taking its own reference for the entry it
// posts (unlike RetryDelete, nothing here can assume a caller-held
// reference already covers it). It is a convenience for callers, like
// ResumeDelete, that want to re-evaluate readiness without risking the
// RetryDelete precondition panic on a still-Live actor.
func (a *Actor) RetryDeleteIfDeleted() {
	if !a.deleted.Load() {
		return
	}
	a.mu.Lock()
	a.refcount++
	a.mu.Unlock()
	a.manager.enqueueNoIncrement(a)
}

// DependencyAdd registers dependent's ref as depending on this actor.
// Precondition: the actor must not be Deleted yet; adding a dependent to a
// Deleted actor is a caller bug and panics rather than failing softly,
// because the invariant it protects (no new edges survive past the moment
// the cascade is fixed) is global to the framework.
func (a *Actor) DependencyAdd(ref *Ref) {
	// Detach from whatever provider (and mutex) the ref was previously
	// attached to before taking our own lock, so we never hold two
	// actors' mutexes at once.
	ref.edge.Clear()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != stateLive {
		panic("lifetime: DependencyAdd called on a Deleted actor")
	}
	ref.edge.linkLocked(a.dependents)
}

// DependencyRemove unlinks ref from this actor's dependent list. If the
// actor is already Deleted and the list has just become empty, this is the
// mechanism that re-evaluates a deletion that was deferred waiting for this
// dependent to go away: the actor takes a reference and re-enqueues itself.
func (a *Actor) DependencyRemove(ref *Ref) {
	a.mu.Lock()
	if ref.edge.list == a.dependents {
		ref.edge.unlinkLocked()
	}
	shouldRetry := a.state != stateLive && a.dependents.EmptyLocked()
	if shouldRetry {
		a.refcount++
	}
	a.mu.Unlock()
	if shouldRetry {
		a.manager.enqueueNoIncrement(a)
	}
}

// ReferenceIncrement takes a lightweight (non-graph) reference on the
// actor, for dependents that don't need a full DependencyRef edge.
func (a *Actor) ReferenceIncrement() {
	a.mu.Lock()
	a.refcount++
	a.mu.Unlock()
}

// ReferenceDecrementAndTest releases a lightweight reference and reports
// whether the actor is now ready to destroy: refcount is zero, the
// dependent list is empty, deletion isn't paused, and the subclass's
// MayDelete predicate holds. When it returns true the caller (always the
// manager's executor) proceeds to DeleteComplete/Destroy; when it returns
// false the actor stays put until the next dependent removal or reference
// decrement re-evaluates it.
func (a *Actor) ReferenceDecrementAndTest() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refcount <= 0 {
		panic("lifetime: reference count underflow")
	}
	a.refcount--
	return a.readyLocked()
}

func (a *Actor) readyLocked() bool {
	if a.refcount != 0 {
		return false
	}
	if !a.dependents.EmptyLocked() {
		return false
	}
	if a.pauseCount > 0 {
		return false
	}
	return a.hooks.MayDelete()
}

// propagateDelete runs on the manager's worker context. It asserts the
// actor is Deleted, then cascades deletion to every dependent present at
// the moment the mutex is acquired.
func (a *Actor) propagateDelete() {
	if !a.deleted.Load() {
		panic("lifetime: PropagateDelete called on a non-Deleted actor")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dependents.EachLocked(func(ref *Ref) {
		ref.cascade()
	})
}

// runShutdownOnce cascades deletion to dependents on the first pass only
// (the move to ShutdownInvoked keeps repeat passes, waiting on dependents or
// refcount, from cascading again), then runs the Shutdown hook on every pass
// and records shutdownInvoked.
func (a *Actor) runShutdownOnce() {
	a.mu.Lock()
	alreadyCascaded := a.state == stateShutdownInvoked || a.state == stateDestroyed
	if !alreadyCascaded {
		a.state = stateShutdownInvoked
	}
	a.mu.Unlock()

	if !alreadyCascaded {
		a.propagateDelete()
	}
	a.hooks.Shutdown()
	a.mu.Lock()
	a.shutdownInvoked = true
	a.mu.Unlock()
}

// finish runs DeleteComplete then Destroy, exactly once, and marks the
// actor Destroyed. Caller (the manager's executor) must have already
// confirmed readiness via ReferenceDecrementAndTest.
func (a *Actor) finish() {
	a.mu.Lock()
	if a.state == stateDestroyed {
		a.mu.Unlock()
		panic("lifetime: Destroy called twice")
	}
	if !a.shutdownInvoked {
		a.mu.Unlock()
		panic("lifetime: Destroy called before Shutdown ever ran")
	}
	if a.refcount != 0 || !a.dependents.EmptyLocked() {
		a.mu.Unlock()
		panic("lifetime: Destroy called with outstanding references or dependents")
	}
	a.deleteComplete = true
	a.state = stateDestroyed
	a.mu.Unlock()

	a.hooks.DeleteComplete()
	a.hooks.Destroy()
}

func (a *Actor) recordDeferral() {
	a.deferrals.Add(1)
}

// DependentCountForTest returns the number of dependents currently linked
// into the actor's list. It exists only to let tests assert on dependent
// list shape without reaching into package-private fields.
func (a *Actor) DependentCountForTest() int {
	return a.dependents.Len()
}
