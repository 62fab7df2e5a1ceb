// SPDX-License-Identifier: MPL-2.0

package resolver

import "github.com/contrail-io/controlplane/internal/table"

// ResolverRouteState is a refcounted handle pinning a requesting path's
// host route for as long as any ResolverPath in the owning partition
// targets it. Per spec §3, the refcount is only ever touched from the
// partition's own worker context, so it needs no atomic and no mutex.
type ResolverRouteState struct {
	route    *table.Route
	refcount int
}

func newResolverRouteState(route *table.Route) *ResolverRouteState {
	return &ResolverRouteState{route: route}
}

func (s *ResolverRouteState) incRef() {
	s.refcount++
}

// decRef releases one reference and reports whether the state is now
// unreferenced and may be dropped from the partition's route-state map.
func (s *ResolverRouteState) decRef() bool {
	s.refcount--
	return s.refcount == 0
}
