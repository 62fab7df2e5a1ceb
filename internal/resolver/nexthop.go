// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"sync"

	"github.com/contrail-io/controlplane/internal/table"
)

// nexthopState is ResolverNexthop's own five-state lifecycle (spec §3),
// distinct from and simpler than LifetimeActor's: a nexthop has no
// dependents of its own to cascade to, so it doesn't need an *Actor, only
// this state plus the resolver's register/unregister/delete bookkeeping.
type nexthopState int32

const (
	// nexthopUnregisteredEmpty is the only state in which a config pass
	// may destroy the nexthop outright, without waiting on the listener.
	nexthopUnregisteredEmpty nexthopState = iota
	nexthopUnregisteredNonempty
	nexthopRegisteredActive
	nexthopRemoving
	nexthopDead
)

func (s nexthopState) String() string {
	switch s {
	case nexthopUnregisteredEmpty:
		return "unregistered-empty"
	case nexthopUnregisteredNonempty:
		return "unregistered-nonempty"
	case nexthopRegisteredActive:
		return "registered-active"
	case nexthopRemoving:
		return "removing"
	case nexthopDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ResolverNexthop is keyed by (address, backing_table) and aggregates the
// set of ResolverPaths, per partition, that currently want it resolved. It
// registers with its backing table's condition listener once it has at
// least one dependent, and unregisters once it has none, strictly on the
// resolver's config-worker pass (never inline with addDependent /
// removeDependent, which can run on any partition's own context).
type ResolverNexthop struct {
	key     NexthopKey
	backing table.Table

	mu         sync.Mutex
	state      nexthopState
	registered bool
	listenerID int
	route      *table.Route
	rpathSets  []map[*ResolverPath]struct{}
	destroyed  bool
}

func newResolverNexthop(key NexthopKey, backing table.Table, partitions int) *ResolverNexthop {
	nh := &ResolverNexthop{
		key:     key,
		backing: backing,
		state:   nexthopUnregisteredEmpty,
	}
	nh.rpathSets = make([]map[*ResolverPath]struct{}, partitions)
	for i := range nh.rpathSets {
		nh.rpathSets[i] = make(map[*ResolverPath]struct{})
	}
	return nh
}

// addDependent records rp as depending on nh from partition p. Per spec
// invariant (a), this must only be called from one of that partition's own
// contexts (StartPathResolution calls it from the partition's table worker,
// which the scheduler serializes with the partition's resolver-path worker).
func (nh *ResolverNexthop) addDependent(p int, rp *ResolverPath) {
	nh.mu.Lock()
	nh.rpathSets[p][rp] = struct{}{}
	if nh.state == nexthopUnregisteredEmpty {
		nh.state = nexthopUnregisteredNonempty
	}
	nh.mu.Unlock()
}

// removeDependent unlinks rp from partition p's dependent set.
func (nh *ResolverNexthop) removeDependent(p int, rp *ResolverPath) {
	nh.mu.Lock()
	delete(nh.rpathSets[p], rp)
	if nh.state == nexthopUnregisteredNonempty && !nh.hasDependentsLocked() {
		nh.state = nexthopUnregisteredEmpty
	}
	nh.mu.Unlock()
}

func (nh *ResolverNexthop) hasDependentsLocked() bool {
	for _, s := range nh.rpathSets {
		if len(s) > 0 {
			return true
		}
	}
	return false
}

func (nh *ResolverNexthop) isRegistered() bool {
	nh.mu.Lock()
	defer nh.mu.Unlock()
	return nh.registered
}

// dependentsSnapshot returns every (partition, ResolverPath) dependent
// currently tracked, used by the resolver-nexthop update pass to notify
// every dependent without holding nh.mu while it calls into partitions.
func (nh *ResolverNexthop) dependentsSnapshot() map[int][]*ResolverPath {
	nh.mu.Lock()
	defer nh.mu.Unlock()
	out := make(map[int][]*ResolverPath, len(nh.rpathSets))
	for p, set := range nh.rpathSets {
		if len(set) == 0 {
			continue
		}
		list := make([]*ResolverPath, 0, len(set))
		for rp := range set {
			list = append(list, rp)
		}
		out[p] = list
	}
	return out
}

// matchCallback runs on the backing table's database worker context (spec
// §4.5). On a match add it records the matching route and stamps the
// listener's db-state on it; on a match delete it clears both. Either way,
// if the nexthop is still active, the caller is expected to schedule an
// update pass for it.
func (nh *ResolverNexthop) matchCallback(added bool, route *table.Route) bool {
	nh.mu.Lock()
	active := nh.state == nexthopRegisteredActive
	if active {
		if added {
			nh.route = route
			route.SetDBState(nh.listenerID, nh.key)
		} else {
			if nh.route != nil {
				nh.route.ClearDBState(nh.listenerID)
			}
			nh.route = nil
		}
	}
	nh.mu.Unlock()
	return active
}

func (nh *ResolverNexthop) currentRoute() *table.Route {
	nh.mu.Lock()
	defer nh.mu.Unlock()
	return nh.route
}

func (nh *ResolverNexthop) destroy() {
	nh.mu.Lock()
	nh.destroyed = true
	nh.mu.Unlock()
}

func (nh *ResolverNexthop) isDestroyed() bool {
	nh.mu.Lock()
	defer nh.mu.Unlock()
	return nh.destroyed
}

func (nh *ResolverNexthop) currentState() nexthopState {
	nh.mu.Lock()
	defer nh.mu.Unlock()
	return nh.state
}
