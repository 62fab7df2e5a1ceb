// SPDX-License-Identifier: MPL-2.0

package lifetime_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contrail-io/controlplane/internal/lifetime"
)

// fakeObject is a minimal Hooks implementation that records how many times
// each hook fired and can report a controllable MayDelete result.
type fakeObject struct {
	name string

	mu          sync.Mutex
	mayDeleteOK bool
	shutdowns   int
	deleteComp  int
	destroyed   int
	destroyedAt time.Time
	parentRef   *lifetime.Ref

	actor *lifetime.Actor
}

func newFakeObject(name string, manager *lifetime.Manager) *fakeObject {
	f := &fakeObject{name: name, mayDeleteOK: true}
	f.actor = lifetime.NewActor(manager, f)
	return f
}

// dependOn wires f as a dependent of parent: a real client stores the ref
// as a field of the dependent object and releases it (Reset(nil)) as part
// of its own teardown, which is what Shutdown below does.
func (f *fakeObject) dependOn(parent *lifetime.Actor) {
	f.parentRef = lifetime.NewRef(f.actor.Delete)
	f.parentRef.Reset(parent)
}

func (f *fakeObject) MayDelete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mayDeleteOK
}

func (f *fakeObject) Shutdown() {
	f.mu.Lock()
	f.shutdowns++
	ref := f.parentRef
	f.mu.Unlock()
	if ref != nil {
		ref.Reset(nil)
	}
}

func (f *fakeObject) DeleteComplete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteComp++
}

func (f *fakeObject) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	f.destroyedAt = time.Now()
}

func (f *fakeObject) isDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed == 1
}

func (f *fakeObject) setMayDelete(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mayDeleteOK = ok
}

// TestParentChildCascade covers scenario 1 from the testable-properties
// section: A <- B <- C (B depends on A, C depends on B). Deleting B must
// destroy C before B; deleting A afterward destroys A.
func TestParentChildCascade(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()

	a := newFakeObject("a", m)
	b := newFakeObject("b", m)
	c := newFakeObject("c", m)

	b.dependOn(a.actor)
	c.dependOn(b.actor)

	b.actor.Delete()

	require.Eventually(t, c.isDestroyed, time.Second, time.Millisecond)
	require.Eventually(t, b.isDestroyed, time.Second, time.Millisecond)
	require.False(t, a.isDestroyed())

	a.actor.Delete()
	require.Eventually(t, a.isDestroyed, time.Second, time.Millisecond)
}

// TestCycleFreeReattach covers scenario 2: B depends on A1, is reset to
// depend on A2 instead, and then A1 is deleted. B must be unaffected.
func TestCycleFreeReattach(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()

	a1 := newFakeObject("a1", m)
	a2 := newFakeObject("a2", m)
	b := newFakeObject("b", m)

	b.dependOn(a1.actor)
	b.parentRef.Reset(a2.actor)

	a1.actor.Delete()
	require.Eventually(t, a1.isDestroyed, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.False(t, b.isDestroyed())

	a2.actor.Delete()
	require.Eventually(t, func() bool { return b.isDestroyed() && a2.isDestroyed() }, time.Second, time.Millisecond)
}

// TestGlobalGate covers scenario 3: the manager's gate returns false for
// the first three passes, then true; deletion must be deferred exactly
// three times before destroying on the fourth.
func TestGlobalGate(t *testing.T) {
	var calls atomic.Int64
	gate := lifetime.GateFunc(func() bool {
		return calls.Add(1) > 3
	})
	m := lifetime.NewManager(gate)
	defer m.Shutdown()

	a := newFakeObject("a", m)
	a.actor.Delete()

	require.Eventually(t, a.isDestroyed, time.Second, time.Millisecond)
	require.Equal(t, int64(3), m.Deferrals())
	require.Equal(t, int64(3), a.actor.DeferralCount())
}

// TestDeleteIdempotent confirms that calling Delete more than once has no
// additional effect.
func TestDeleteIdempotent(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()

	a := newFakeObject("a", m)
	a.actor.Delete()
	a.actor.Delete()
	a.actor.Delete()

	require.Eventually(t, a.isDestroyed, time.Second, time.Millisecond)
	a.mu.Lock()
	defer a.mu.Unlock()
	require.Equal(t, 1, a.destroyed)
	require.Equal(t, 1, a.deleteComp)
}

// TestDependentBlocksDestruction confirms an actor with a pending dependent
// does not destroy until the dependent is gone.
func TestDependentBlocksDestruction(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()

	a := newFakeObject("a", m)
	child := newFakeObject("child", m)

	ref := lifetime.NewRef(func() {})
	ref.Reset(a.actor)

	a.actor.Delete()
	time.Sleep(30 * time.Millisecond)
	require.False(t, a.isDestroyed(), "actor with a live dependent must not destroy")

	_ = child // not deleted; exists only to show the test isn't trivially empty
	ref.Reset(nil)
	require.Eventually(t, a.isDestroyed, time.Second, time.Millisecond)
}

// TestMayDeleteGatesReadiness confirms an actor with no dependents and no
// lightweight refs still waits for MayDelete to become true.
func TestMayDeleteGatesReadiness(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()

	a := newFakeObject("a", m)
	a.setMayDelete(false)

	a.actor.Delete()
	time.Sleep(30 * time.Millisecond)
	require.False(t, a.isDestroyed())

	a.setMayDelete(true)
	// RetryDelete assumes the caller already holds a logical reference
	// covering the new queue entry it creates; since nothing else is
	// holding one here, we take it explicitly.
	a.actor.ReferenceIncrement()
	a.actor.RetryDelete()
	require.Eventually(t, a.isDestroyed, time.Second, time.Millisecond)
}

// TestAttachTwiceIsSingleEdge confirms a ref reset to the same actor twice
// still appears only once in the dependent list.
func TestAttachTwiceIsSingleEdge(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()

	a := newFakeObject("a", m)
	b := newFakeObject("b", m)

	ref := lifetime.NewRef(b.actor.Delete)
	ref.Reset(a.actor)
	ref.Reset(a.actor)

	require.Equal(t, 1, a.actor.DependentCountForTest())
}
