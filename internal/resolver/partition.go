// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"sort"
	"sync"

	"github.com/contrail-io/controlplane/internal/table"
	"github.com/contrail-io/controlplane/internal/workerctx"
)

// PathResolverPartition owns one shard of the resolver's path->ResolverPath
// map and the set of resolver paths whose resolved-path list needs
// recomputation, processed on its own resolver-path worker context (spec
// §4.7, §5).
type PathResolverPartition struct {
	index    int
	resolver *PathResolver

	mu            sync.Mutex
	paths         map[string]*ResolverPath
	updatePending map[*ResolverPath]struct{}
	routeStates   map[*table.Route]*ResolverRouteState

	trigger *workerctx.Trigger
}

func newPathResolverPartition(index int, resolver *PathResolver) *PathResolverPartition {
	p := &PathResolverPartition{
		index:         index,
		resolver:      resolver,
		paths:         make(map[string]*ResolverPath),
		updatePending: make(map[*ResolverPath]struct{}),
		routeStates:   make(map[*table.Route]*ResolverRouteState),
	}
	p.trigger = workerctx.NewTrigger(resolver.sched, workerctx.Context{Tag: workerctx.ResolverPath, Instance: index}, p.runUpdatePass)
	return p
}

// StartPathResolution starts resolution for req (spec §4.6 "Start"). Must
// be called from this partition's table worker context.
func (p *PathResolverPartition) StartPathResolution(req *RequestingPath) *ResolverPath {
	nh := p.resolver.getOrCreateNexthop(NexthopKey{Address: req.NexthopAddr, BackingTable: req.BackingTable})
	rs := p.routeStateFor(req.HostRoute)
	rp := newResolverPath(p, req, nh, rs)

	p.mu.Lock()
	p.paths[req.ID] = rp
	p.mu.Unlock()

	nh.addDependent(p.index, rp)
	p.resolver.scheduleNexthopConfig(nh)
	p.scheduleUpdate(rp)
	return rp
}

// UpdatePathResolution applies req to an already-started rp (spec §4.6
// "Update"). If the nexthop address or backing table changed, this stops
// rp and starts a fresh ResolverPath instead of mutating rp in place.
func (p *PathResolverPartition) UpdatePathResolution(rp *ResolverPath, req *RequestingPath) *ResolverPath {
	p.mu.Lock()
	changed := rp.path != nil && (rp.path.NexthopAddr != req.NexthopAddr || rp.path.BackingTable != req.BackingTable)
	p.mu.Unlock()

	if changed {
		p.StopPathResolution(rp)
		return p.StartPathResolution(req)
	}

	p.mu.Lock()
	rp.path = req
	rp.hostRoute = req.HostRoute
	p.mu.Unlock()
	p.scheduleUpdate(rp)
	return rp
}

// StopPathResolution removes rp from the map and clears its back-pointer
// to the requesting path; rp is destroyed on its next recomputation pass,
// not immediately (spec §4.6 "Stop"/"Destruction timing"). The dependency
// edge into the nexthop's tracking is cut right away, like a
// DependencyEdge.Clear -- only the ResolverPath object's own memory
// survives until the next pass, not its claim on the nexthop.
func (p *PathResolverPartition) StopPathResolution(rp *ResolverPath) {
	p.mu.Lock()
	if rp.path != nil {
		delete(p.paths, rp.path.ID)
	}
	p.mu.Unlock()
	rp.stop()
	rp.nexthop.removeDependent(p.index, rp)
	p.resolver.scheduleNexthopConfig(rp.nexthop)
	p.scheduleUpdate(rp)
}

func (p *PathResolverPartition) routeStateFor(route *table.Route) *ResolverRouteState {
	p.mu.Lock()
	defer p.mu.Unlock()
	rs, ok := p.routeStates[route]
	if !ok {
		rs = newResolverRouteState(route)
		p.routeStates[route] = rs
	}
	rs.incRef()
	return rs
}

func (p *PathResolverPartition) scheduleUpdate(rp *ResolverPath) {
	p.mu.Lock()
	p.updatePending[rp] = struct{}{}
	p.mu.Unlock()
	p.trigger.Set(context.Background())
}

// runUpdatePass is the partition's resolver-path worker entry point: it
// drains the pending set and recomputes each resolver path's resolved-path
// list exactly once per path per pass.
func (p *PathResolverPartition) runUpdatePass(ctx context.Context) {
	p.mu.Lock()
	pending := make([]*ResolverPath, 0, len(p.updatePending))
	for rp := range p.updatePending {
		pending = append(pending, rp)
	}
	p.updatePending = make(map[*ResolverPath]struct{})
	p.mu.Unlock()

	for _, rp := range pending {
		p.recompute(rp)
	}
}

// recompute implements the resolved-path recomputation algorithm of spec
// §4.6: walk the backing route's best-path group, synthesize resolved
// paths, diff against what's installed, notify the host route, and destroy
// rp if resolution was stopped.
func (p *PathResolverPartition) recompute(rp *ResolverPath) {
	newSet := make(map[table.ResolvedPathKey]*table.Path)

	if !rp.stopped() {
		if route := rp.nexthop.currentRoute(); route != nil {
			comparator := rp.nexthop.backing.Comparator()
			seenForwarding := make(map[[2]string]struct{})
			var prev *table.Path
			for _, np := range route.Paths() {
				if !np.Feasible {
					break // stop at the first infeasible path
				}
				if prev != nil && !comparator.Tied(prev, np) {
					break // left the ECMP best group
				}
				prev = np

				if np.RD == "" {
					continue // no source route-distinguisher: skip
				}
				fk := np.ForwardingKey()
				if _, dup := seenForwarding[fk]; dup {
					continue // duplicate forwarding information: skip
				}
				seenForwarding[fk] = struct{}{}

				key := table.ResolvedPathKey{
					Peer:    rp.path.Attrs.Peer,
					PathID:  rp.path.Attrs.PathID,
					AttrPtr: np.AttrPtr,
					Label:   np.Label,
				}
				newSet[key] = synthesizeResolvedPath(rp.path.Attrs, np)
			}
		}
	}

	for k := range rp.resolved {
		if _, ok := newSet[k]; !ok {
			delete(rp.resolved, k)
		}
	}
	for k, v := range newSet {
		rp.resolved[k] = v
	}

	rp.hostRoute.SetPaths(sortedResolvedPaths(rp.resolved))

	if rp.stopped() {
		p.destroyResolverPath(rp)
	}
}

func (p *PathResolverPartition) destroyResolverPath(rp *ResolverPath) {
	// rp's dependency on its nexthop was already cut in StopPathResolution;
	// this only releases the partition's own bookkeeping.
	p.mu.Lock()
	delete(p.updatePending, rp)
	rs := rp.routeState
	p.mu.Unlock()

	if rs.decRef() {
		p.mu.Lock()
		delete(p.routeStates, rp.hostRoute)
		p.mu.Unlock()
	}
	rp.destroyed = true
}

func sortedResolvedPaths(resolved map[table.ResolvedPathKey]*table.Path) []*table.Path {
	if len(resolved) == 0 {
		return nil
	}
	keys := make([]table.ResolvedPathKey, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Peer != keys[j].Peer {
			return keys[i].Peer < keys[j].Peer
		}
		if keys[i].PathID != keys[j].PathID {
			return keys[i].PathID < keys[j].PathID
		}
		return keys[i].Label < keys[j].Label
	})
	out := make([]*table.Path, len(keys))
	for i, k := range keys {
		out[i] = resolved[k]
	}
	return out
}
