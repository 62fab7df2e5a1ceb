// SPDX-License-Identifier: MPL-2.0

package resolver

import "github.com/contrail-io/controlplane/internal/table"

// ResolverPath is the per-path record tying a requesting path to the
// nexthop it wants resolved, and to the set of resolved paths currently
// materialized on its host route. It is only ever read or mutated from its
// owning partition's own contexts: the table worker (start, update, stop)
// and the resolver-path worker (recomputation).
type ResolverPath struct {
	partition *PathResolverPartition

	// path is cleared by stop(); once nil the resolver path survives only
	// until its next recomputation pass, which destroys it (spec §4.6).
	path *RequestingPath

	hostRoute  *table.Route
	nexthop    *ResolverNexthop
	routeState *ResolverRouteState

	resolved map[table.ResolvedPathKey]*table.Path
	destroyed bool
}

func newResolverPath(partition *PathResolverPartition, req *RequestingPath, nh *ResolverNexthop, rs *ResolverRouteState) *ResolverPath {
	return &ResolverPath{
		partition:  partition,
		path:       req,
		hostRoute:  req.HostRoute,
		nexthop:    nh,
		routeState: rs,
		resolved:   make(map[table.ResolvedPathKey]*table.Path),
	}
}

// stop clears the requesting-path back-pointer; the resolver path survives
// until the next recomputation pass (spec §4.6 "Stop").
func (rp *ResolverPath) stop() {
	rp.path = nil
}

func (rp *ResolverPath) stopped() bool {
	return rp.path == nil
}

// Stopped reports whether Stop has been called on this resolver path's
// requesting path, for introspection.
func (rp *ResolverPath) Stopped() bool { return rp.stopped() }

// ResolvedCount reports how many resolved paths are currently installed,
// for introspection and tests.
func (rp *ResolverPath) ResolvedCount() int { return len(rp.resolved) }

// Destroyed reports whether this resolver path has completed its final
// recomputation pass and been dropped.
func (rp *ResolverPath) Destroyed() bool { return rp.destroyed }
