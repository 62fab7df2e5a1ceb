// SPDX-License-Identifier: MPL-2.0

package table

import "sync"

// RoutingAttrs is the subset of a requesting path's own attributes that a
// synthesized resolved path inherits directly, rather than taking from the
// nexthop path (spec §4.6 step 3: "inherits routing attributes from the
// requesting path").
type RoutingAttrs struct {
	Peer   string
	PathID uint32
	// ExtendedCommunities holds the extended communities the requesting
	// path carried. Resolved-path synthesis does not copy them: Path has no
	// extended-community field.
	ExtendedCommunities []string
}

// Path is a single path on a route, carrying both the routing attributes
// (peer, feasibility, route-distinguisher) and the forwarding attributes a
// resolved path would copy from it when this Path is a nexthop path.
type Path struct {
	Peer   string
	PathID uint32

	// Pref is the path's combined local-preference/MED rank as computed by
	// the backing table; Memory's comparator considers two paths tied when
	// their Pref is equal. A real table would derive Tied from its actual
	// best-path algorithm instead.
	Pref int

	Feasible bool
	// RD is the path's source route-distinguisher. An empty RD means the
	// path has none and must be skipped during resolved-path recomputation
	// (spec §4.6 step 2).
	RD string

	// NexthopAddr, Label, Tunnel, SecurityGroups and LoadBalanceSet are the
	// forwarding attributes a resolved path copies from a nexthop path
	// (spec §4.6 step 3).
	NexthopAddr    string
	Label          uint32
	Tunnel         string
	SecurityGroups []uint32
	LoadBalanceSet bool

	// AttrPtr stands in for the source language's pointer-identity
	// attribute handle: two paths with the same AttrPtr carry identical
	// attributes. It participates in the resolved-path stable key.
	AttrPtr uintptr
}

// ForwardingKey returns the subset of fields spec §4.6 step 2 uses to
// detect duplicate nexthop paths ("skip duplicates (same forwarding
// information)").
func (p *Path) ForwardingKey() [2]string {
	return [2]string{p.NexthopAddr, p.Tunnel}
}

// ResolvedPathKey is the stable key spec §4.6 step 4 diffs resolved paths
// on: (peer, path-id, attribute-pointer, label).
type ResolvedPathKey struct {
	Peer    string
	PathID  uint32
	AttrPtr uintptr
	Label   uint32
}

// Route is a single destination: an ordered list of paths (in the table's
// own best-path order) plus, for host routes a resolver nexthop is
// tracking, a set of per-listener db-state slots.
type Route struct {
	Addr Address

	mu    sync.Mutex
	paths []*Path

	// dbState holds listener-owned state keyed by listener id, set by a
	// ConditionListener implementation when it records a match on this
	// route (spec §4.5 "sets the condition-listener match state on the
	// route").
	dbState map[int]any

	// onEmpty, if set, is invoked each time SetPaths leaves the route with
	// zero paths after it had at least one; it models "delete the route
	// entry if none does" (spec §4.6 step 5) for tables that don't keep
	// empty route entries around.
	onEmpty func()
	hadPath bool
}

// NewRoute creates an empty route for addr.
func NewRoute(addr Address) *Route {
	return &Route{Addr: addr, dbState: make(map[int]any)}
}

// Paths returns a snapshot of the route's current paths in best-path order.
func (r *Route) Paths() []*Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Path, len(r.paths))
	copy(out, r.paths)
	return out
}

// SetPaths replaces the route's path list, in best-path order.
func (r *Route) SetPaths(paths []*Path) {
	r.mu.Lock()
	r.paths = paths
	hasPath := len(paths) > 0
	becameEmpty := r.hadPath && !hasPath
	r.hadPath = hasPath
	cb := r.onEmpty
	r.mu.Unlock()
	if becameEmpty && cb != nil {
		cb()
	}
}

// OnEmpty registers a callback fired the moment the route transitions from
// having at least one path to having none.
func (r *Route) OnEmpty(cb func()) {
	r.mu.Lock()
	r.onEmpty = cb
	r.mu.Unlock()
}

// SetDBState attaches listener-owned state to the route under listenerID.
func (r *Route) SetDBState(listenerID int, state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbState[listenerID] = state
}

// DBState returns the state previously attached under listenerID, if any.
func (r *Route) DBState(listenerID int) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.dbState[listenerID]
	return s, ok
}

// ClearDBState removes any state attached under listenerID.
func (r *Route) ClearDBState(listenerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dbState, listenerID)
}
