// SPDX-License-Identifier: MPL-2.0

// Package lifetime implements the object lifetime and dependency framework:
// a directed, acyclic graph of long-lived objects that must be torn down in
// dependency order even though deletion can be requested, from any
// goroutine, at any point while the graph is still being built. See doc.go
// for the shape of the contract.
package lifetime

// DependencyEdge is an intrusive, doubly-linked membership record. It
// belongs to exactly one dependent (the value it carries) and, while
// attached, is threaded onto exactly one provider's DependencyList. Edge
// insertion and removal are O(1).
//
// Neither DependencyEdge nor DependencyList owns its endpoints: both are
// meant to be embedded as intrusive members of the dependent and provider
// objects respectively. [Ref] is the framework's own use of this
// primitive, pairing an edge targeting an [Actor] with the cascade
// callback that fires when that actor starts deleting.
type DependencyEdge[D any] struct {
	dependent  D
	list       *DependencyList[D]
	prev, next *DependencyEdge[D]
}

// NewDependencyEdge creates a detached edge carrying the given dependent
// value.
func NewDependencyEdge[D any](dependent D) *DependencyEdge[D] {
	return &DependencyEdge[D]{dependent: dependent}
}

// Dependent returns the value the edge was constructed with.
func (e *DependencyEdge[D]) Dependent() D {
	return e.dependent
}

// IsSet reports whether the edge currently has a provider.
func (e *DependencyEdge[D]) IsSet() bool {
	return e.list != nil
}

// Attach unlinks the edge from its current provider, if any, and links it
// into list. A nil list detaches the edge without attaching it to anything,
// equivalent to Clear. Safe to call from any goroutine; attaching an
// already-attached edge is handled by first detaching it, so there is no
// precondition to violate here.
func (e *DependencyEdge[D]) Attach(list *DependencyList[D]) {
	e.Clear()
	if list == nil {
		return
	}
	list.mu.Lock()
	e.linkLocked(list)
	list.mu.Unlock()
}

// Clear unlinks the edge from its current provider. Idempotent: clearing an
// already-detached edge does nothing. Safe to call from any goroutine.
func (e *DependencyEdge[D]) Clear() {
	list := e.list
	if list == nil {
		return
	}
	list.mu.Lock()
	// Re-check under the lock: another goroutine may have already moved
	// this edge (e.g. via a concurrent Attach to a different list).
	if e.list == list {
		e.unlinkLocked()
	}
	list.mu.Unlock()
}

// linkLocked links e into list. Caller must hold list.mu and e must be
// detached.
func (e *DependencyEdge[D]) linkLocked(list *DependencyList[D]) {
	e.list = list
	e.prev = list.tail
	e.next = nil
	if list.tail != nil {
		list.tail.next = e
	} else {
		list.head = e
	}
	list.tail = e
	list.length++
}

// unlinkLocked removes e from its list. Caller must hold e.list.mu and
// e.list must be non-nil.
func (e *DependencyEdge[D]) unlinkLocked() {
	list := e.list
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		list.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		list.tail = e.prev
	}
	e.prev, e.next, e.list = nil, nil, nil
	list.length--
}

// DependencyList is an ordered (by insertion), intrusive list of
// DependencyEdges belonging to a single provider. It shares a mutex with its
// owning provider so that edge attach/clear is atomic with respect to
// whatever else the provider guards with that same mutex (for a
// [Actor], its refcount and lifecycle state).
//
// Methods other than Len/Empty assume the caller already holds the shared
// mutex; they exist for use by the provider's own methods, which acquire
// the mutex once and then perform several list operations under it (for
// example, a cascade that walks the whole list while dependents remove
// themselves from it).
type DependencyList[D any] struct {
	mu         lockable
	head, tail *DependencyEdge[D]
	length     int
}

// NewDependencyList creates a list guarded by mu. The caller retains mu and
// may use it to guard other provider state that must stay consistent with
// list membership, such as a refcount.
func NewDependencyList[D any](mu lockable) *DependencyList[D] {
	return &DependencyList[D]{mu: mu}
}

// Len returns the number of edges currently linked into the list.
func (l *DependencyList[D]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.length
}

// Empty reports whether the list has no edges.
func (l *DependencyList[D]) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.length == 0
}

// EachLocked calls fn once for the dependent owning each edge present in the
// list at the moment EachLocked is called, in insertion order. Caller must
// already hold the shared mutex. Dependents are snapshotted up front so that
// fn may remove the current edge (or any other edge in the list, including
// ones not yet visited) without skipping or repeating an entry: the
// contract is exactly-once delivery to every edge present at entry, not to
// edges added afterward.
func (l *DependencyList[D]) EachLocked(fn func(D)) {
	deps := make([]D, 0, l.length)
	for e := l.head; e != nil; e = e.next {
		deps = append(deps, e.dependent)
	}
	for _, d := range deps {
		fn(d)
	}
}

// ClearLocked unlinks every edge in the list, leaving every formerly-linked
// edge detached. Caller must already hold the shared mutex.
func (l *DependencyList[D]) ClearLocked() {
	for e := l.head; e != nil; {
		next := e.next
		e.prev, e.next, e.list = nil, nil, nil
		e = next
	}
	l.head, l.tail, l.length = nil, nil, 0
}

// EmptyLocked reports whether the list has no edges. Caller must already
// hold the shared mutex.
func (l *DependencyList[D]) EmptyLocked() bool {
	return l.length == 0
}

// LenLocked returns the number of edges. Caller must already hold the
// shared mutex.
func (l *DependencyList[D]) LenLocked() int {
	return l.length
}

type lockable interface {
	Lock()
	Unlock()
}
