// SPDX-License-Identifier: MPL-2.0

package table

import (
	"sync"

	"github.com/google/uuid"

	"github.com/contrail-io/controlplane/internal/lifetime"
)

// rankComparator ties paths with equal Pref, matching the ECMP semantics
// scenario 6 of the testable-properties section exercises.
type rankComparator struct{}

func (rankComparator) Tied(a, b *Path) bool { return a.Pref == b.Pref }

// Memory is an in-memory Table used by resolver tests and by the demo
// command. Match callbacks resolve synchronously, and listener removal
// confirms inline -- a legal implementation of the "asynchronous" contract
// per spec §9's open question, since nothing requires the hop to actually
// cross a goroutine boundary.
type Memory struct {
	name       string
	partitions int
	manager    *lifetime.Manager
	deleter    *lifetime.Actor
	comparator PathComparator

	mu        sync.Mutex
	routes    map[Address]*Route
	listeners map[int]*memListener
	nextID    int
	deleting  bool

	onDestroyResolver func()
}

// OnDestroyPathResolver registers the callback DestroyPathResolver invokes;
// a demo or test that owns a *PathResolver typically uses it to drop its
// own reference once the resolver confirms it has fully drained.
func (m *Memory) OnDestroyPathResolver(cb func()) {
	m.mu.Lock()
	m.onDestroyResolver = cb
	m.mu.Unlock()
}

// DestroyPathResolver implements Table.
func (m *Memory) DestroyPathResolver() {
	m.mu.Lock()
	cb := m.onDestroyResolver
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type memListener struct {
	addr    Address
	onMatch func(added bool, route *Route)
}

// NewMemory creates an in-memory table with the given partition count. The
// table's own deletion is driven through manager like any other lifetime
// client; hooks is typically a thin adapter whose Destroy releases the
// table.
func NewMemory(name string, partitions int, manager *lifetime.Manager, hooks lifetime.Hooks) *Memory {
	m := &Memory{
		name:       name,
		partitions: partitions,
		manager:    manager,
		comparator: rankComparator{},
		routes:     make(map[Address]*Route),
		listeners:  make(map[int]*memListener),
	}
	m.deleter = lifetime.NewActor(manager, hooks)
	return m
}

func (m *Memory) Name() string               { return m.name }
func (m *Memory) PartitionCount() int         { return m.partitions }
func (m *Memory) Comparator() PathComparator  { return m.comparator }
func (m *Memory) Deleter() *lifetime.Actor    { return m.deleter }
func (m *Memory) Listener() ConditionListener { return m }

func (m *Memory) Deleting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleting
}

// MarkDeleting flips the table into the deleting state; the config pass
// consults this before registering any new resolver nexthop against it.
func (m *Memory) MarkDeleting() {
	m.mu.Lock()
	m.deleting = true
	m.mu.Unlock()
}

// Route returns the current route at addr, creating nothing if absent.
func (m *Memory) Route(addr Address) *Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routes[addr]
}

// SetRoute installs route under its own address, overwriting any prior
// route there, and fires match callbacks for every registered listener on
// that address.
func (m *Memory) SetRoute(route *Route) {
	m.mu.Lock()
	m.routes[route.Addr] = route
	matching := m.listenersForLocked(route.Addr)
	m.mu.Unlock()
	for _, l := range matching {
		l.onMatch(true, route)
	}
}

// DeleteRoute removes the route at addr, if any, and fires match-delete
// callbacks for every registered listener on that address.
func (m *Memory) DeleteRoute(addr Address) {
	m.mu.Lock()
	route, ok := m.routes[addr]
	if ok {
		delete(m.routes, addr)
	}
	matching := m.listenersForLocked(addr)
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, l := range matching {
		l.onMatch(false, route)
	}
}

func (m *Memory) listenersForLocked(addr Address) []*memListener {
	var out []*memListener
	for _, l := range m.listeners {
		if l.addr == addr {
			out = append(out, l)
		}
	}
	return out
}

// Register implements ConditionListener.
func (m *Memory) Register(addr Address, onMatch func(added bool, route *Route)) int {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = &memListener{addr: addr, onMatch: onMatch}
	route := m.routes[addr]
	m.mu.Unlock()
	if route != nil {
		onMatch(true, route)
	}
	return id
}

// Remove implements ConditionListener; Memory confirms removal inline.
func (m *Memory) Remove(listenerID int, done func()) {
	m.mu.Lock()
	delete(m.listeners, listenerID)
	m.mu.Unlock()
	if done != nil {
		done()
	}
}

// NewPathID hands out a synthetic, random path identifier; used by the demo
// where it needs distinct identifiers without caring about their exact
// shape.
func NewPathID() uint32 {
	id := uuid.New()
	// Fold the 16 random bytes down to a uint32; collisions are
	// inconsequential here since PathID only needs to be distinct within a
	// single demo run, not globally stable.
	var v uint32
	for i, b := range id {
		v ^= uint32(b) << uint((i%4)*8)
	}
	return v
}
