// SPDX-License-Identifier: MPL-2.0

package table

import "github.com/contrail-io/controlplane/internal/lifetime"

// Address is a route key. The resolver only ever looks up host routes (a
// full-length v4 or v6 prefix), but the table interface itself is address
// shape agnostic.
type Address string

// Table is the contract the resolver needs from a backing routing table:
// enough to look up a route by address, subscribe to host-route matches
// through a ConditionListener, compare paths the same way the table does
// for its own best-path selection, and tie resolver teardown to the table's
// own lifetime.
type Table interface {
	// Name identifies the table; used as part of a resolver nexthop's key
	// alongside the address, since resolution is scoped per (address,
	// backing table).
	Name() string

	// Route returns the route currently installed at addr, or nil if none.
	Route(addr Address) *Route

	// Listener returns the table's condition listener, used by resolver
	// nexthops to subscribe to host-route match/unmatch events.
	Listener() ConditionListener

	// Comparator returns the best-path comparator this table uses for its
	// own path selection; the resolver must reuse it when walking a route's
	// paths rather than defining its own ECMP tie-break rule.
	Comparator() PathComparator

	// Deleter returns the lifetime actor that represents this table's own
	// deletion. A PathResolver attaches a lifetime.Ref to this actor so the
	// resolver is torn down when its host table is.
	Deleter() *lifetime.Actor

	// PartitionCount reports how many partitions this table is sharded
	// into; a PathResolver built on this table creates one
	// PathResolverPartition per partition.
	PartitionCount() int

	// Deleting reports whether the table itself has already started
	// tearing down. Registering a new resolver nexthop against a deleting
	// table is refused by the config pass (spec's registration rule).
	Deleting() bool

	// DestroyPathResolver is invoked by a PathResolver's Destroy hook once
	// it has fully drained; the table is the only legal owner of the
	// resolver and must release whatever reference it was holding to it.
	DestroyPathResolver()
}

// ConditionListener is the external table-level facility that reports "a
// route matching this predicate appeared / disappeared". A ResolverNexthop
// registers with it for exact host-route matches on its address and
// receives MatchAdd/MatchDelete callbacks; removal is requested and
// confirmed asynchronously (or, for an in-memory table, synchronously on
// the same call).
type ConditionListener interface {
	// Register subscribes addr for match callbacks, returning a listener
	// id the nexthop uses for db-state slots and for Remove. onMatch is
	// called with (added, route) whenever the matching route appears or
	// disappears.
	Register(addr Address, onMatch func(added bool, route *Route)) (listenerID int)

	// Remove unsubscribes listenerID. done is invoked once removal is
	// confirmed; the caller must not assume this happens synchronously,
	// even though the in-memory implementation happens to call it inline.
	Remove(listenerID int, done func())
}

// PathComparator orders paths the same way the backing table does for its
// own best-path selection. Paths are assumed to already be in the route's
// natural (best-path-ordered) order; Tied reports whether the path
// immediately following a (which is b) belongs to the same ECMP best group
// as a.
type PathComparator interface {
	Tied(a, b *Path) bool
}
