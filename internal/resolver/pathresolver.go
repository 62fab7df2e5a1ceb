// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"sync"

	"github.com/contrail-io/controlplane/internal/lifetime"
	"github.com/contrail-io/controlplane/internal/logging"
	"github.com/contrail-io/controlplane/internal/table"
	"github.com/contrail-io/controlplane/internal/workerctx"
)

var log = logging.HCLogger().Named("resolver")

// BackingTableLookup resolves a table name (as carried in a NexthopKey or
// RequestingPath) to the table.Table that owns it. A resolver nexthop's
// host table and its backing table are frequently the same table, but the
// framework never assumes that.
type BackingTableLookup func(name string) table.Table

// PathResolver is created once per table registered for resolution. It
// owns the (address, backing-table) -> ResolverNexthop map, the
// register/unregister and remove-in-flight sets, one PathResolverPartition
// per partition of its host table, and its own LifetimeActor tied to the
// host table's deleter via a LifetimeRef (spec §4.7).
type PathResolver struct {
	hostTable table.Table
	backing   BackingTableLookup
	sched     *workerctx.Scheduler

	actor    *lifetime.Actor
	tableRef *lifetime.Ref

	mu             sync.Mutex
	nexthops       map[NexthopKey]*ResolverNexthop
	regUnregSet    map[*ResolverNexthop]struct{}
	removeInFlight map[*ResolverNexthop]struct{}
	configTrigger  *workerctx.Trigger

	updateMu      sync.Mutex
	updateSet     map[*ResolverNexthop]struct{}
	updateTrigger *workerctx.Trigger

	partitions []*PathResolverPartition
}

// NewPathResolver creates a resolver for hostTable, using sched to enforce
// the mutual-exclusion rules between hostTable's own partitions and the
// resolver's two workers. backing resolves a nexthop's backing-table name
// to the table.Table that actually carries its routes (often hostTable
// itself).
func NewPathResolver(hostTable table.Table, backing BackingTableLookup, manager *lifetime.Manager, sched *workerctx.Scheduler) *PathResolver {
	r := &PathResolver{
		hostTable:      hostTable,
		backing:        backing,
		sched:          sched,
		nexthops:       make(map[NexthopKey]*ResolverNexthop),
		regUnregSet:    make(map[*ResolverNexthop]struct{}),
		removeInFlight: make(map[*ResolverNexthop]struct{}),
		updateSet:      make(map[*ResolverNexthop]struct{}),
	}
	r.actor = lifetime.NewActor(manager, r)
	r.tableRef = lifetime.NewRef(r.actor.Delete)
	r.tableRef.Reset(hostTable.Deleter())

	r.configTrigger = workerctx.NewTrigger(sched, workerctx.Context{Tag: workerctx.Config}, r.runConfigPass)
	r.updateTrigger = workerctx.NewTrigger(sched, workerctx.Context{Tag: workerctx.ResolverNexthop}, r.runNexthopUpdatePass)

	r.partitions = make([]*PathResolverPartition, hostTable.PartitionCount())
	for i := range r.partitions {
		r.partitions[i] = newPathResolverPartition(i, r)
	}
	return r
}

// Actor returns the resolver's own lifetime actor.
func (r *PathResolver) Actor() *lifetime.Actor { return r.actor }

// Partition returns the resolver's partition at index i, for callers that
// need to issue table-context registration calls directly (spec §6).
func (r *PathResolver) Partition(i int) *PathResolverPartition { return r.partitions[i] }

// StartPathResolution implements spec §6's registration interface. Must be
// called from partition's table worker context.
func (r *PathResolver) StartPathResolution(partition int, req *RequestingPath) *ResolverPath {
	return r.partitions[partition].StartPathResolution(req)
}

// UpdatePathResolution implements spec §6's registration interface.
func (r *PathResolver) UpdatePathResolution(partition int, rp *ResolverPath, req *RequestingPath) *ResolverPath {
	return r.partitions[partition].UpdatePathResolution(rp, req)
}

// StopPathResolution implements spec §6's registration interface.
func (r *PathResolver) StopPathResolution(partition int, rp *ResolverPath) {
	r.partitions[partition].StopPathResolution(rp)
}

func (r *PathResolver) getOrCreateNexthop(key NexthopKey) *ResolverNexthop {
	r.mu.Lock()
	defer r.mu.Unlock()
	nh, ok := r.nexthops[key]
	if !ok {
		nh = newResolverNexthop(key, r.backing(key.BackingTable), len(r.partitions))
		r.nexthops[key] = nh
	}
	return nh
}

func (r *PathResolver) scheduleNexthopConfig(nh *ResolverNexthop) {
	r.mu.Lock()
	r.regUnregSet[nh] = struct{}{}
	r.mu.Unlock()
	r.configTrigger.Set(context.Background())
}

func (r *PathResolver) scheduleNexthopUpdate(nh *ResolverNexthop) {
	r.updateMu.Lock()
	r.updateSet[nh] = struct{}{}
	r.updateMu.Unlock()
	r.updateTrigger.Set(context.Background())
}

// runConfigPass is the resolver's configuration-worker entry point (spec
// §4.5 "Registration with the backing table").
func (r *PathResolver) runConfigPass(ctx context.Context) {
	r.mu.Lock()
	pending := make([]*ResolverNexthop, 0, len(r.regUnregSet))
	for nh := range r.regUnregSet {
		pending = append(pending, nh)
	}
	r.regUnregSet = make(map[*ResolverNexthop]struct{})
	r.mu.Unlock()

	for _, nh := range pending {
		r.configPassOne(nh)
	}
}

func (r *PathResolver) configPassOne(nh *ResolverNexthop) {
	nh.mu.Lock()
	state := nh.state
	hasDeps := nh.hasDependentsLocked()
	nh.mu.Unlock()

	switch {
	case state == nexthopRemoving:
		// The listener has confirmed teardown; unregister and destroy.
		nh.mu.Lock()
		nh.state = nexthopDead
		nh.registered = false
		nh.mu.Unlock()
		r.mu.Lock()
		delete(r.removeInFlight, nh)
		r.mu.Unlock()
		nh.destroy()
		r.retryIfReady()

	case hasDeps && !nh.isRegistered() && nh.backing != nil && !nh.backing.Deleting():
		id := nh.backing.Listener().Register(nh.key.Address, func(added bool, route *table.Route) {
			if nh.matchCallback(added, route) {
				r.scheduleNexthopUpdate(nh)
			}
		})
		nh.mu.Lock()
		nh.listenerID = id
		nh.registered = true
		nh.state = nexthopRegisteredActive
		nh.mu.Unlock()
		log.Debug("registered nexthop", "address", nh.key.Address, "backing_table", nh.key.BackingTable, "listener_id", id)
		// A match reported before the state above was set (for example the
		// one Register delivers for an already-installed route) was ignored
		// by matchCallback; replay it now that the nexthop is active.
		if route := nh.backing.Route(nh.key.Address); route != nil && nh.matchCallback(true, route) {
			r.scheduleNexthopUpdate(nh)
		}

	case !hasDeps && !nh.isRegistered():
		// Add-then-remove-before-register race: destroy without ever
		// touching the listener.
		r.mu.Lock()
		delete(r.nexthops, nh.key)
		r.mu.Unlock()
		nh.destroy()
		log.Debug("destroyed nexthop before it was ever registered", "address", nh.key.Address, "backing_table", nh.key.BackingTable)
		r.retryIfReady()

	case !hasDeps && nh.isRegistered():
		r.mu.Lock()
		delete(r.nexthops, nh.key)
		r.removeInFlight[nh] = struct{}{}
		r.mu.Unlock()
		nh.mu.Lock()
		nh.state = nexthopRemoving
		listenerID := nh.listenerID
		nh.mu.Unlock()
		log.Debug("unregistering nexthop with no remaining dependents", "address", nh.key.Address, "backing_table", nh.key.BackingTable, "listener_id", listenerID)
		nh.backing.Listener().Remove(listenerID, func() {
			r.scheduleNexthopConfig(nh)
		})
	}
}

// runNexthopUpdatePass is the resolver's singleton nexthop-update worker
// entry point (spec §4.5 "Update pass"): it notifies every dependent
// resolver path of every nexthop due for an update; partitions then
// process their own update lists independently.
func (r *PathResolver) runNexthopUpdatePass(ctx context.Context) {
	r.updateMu.Lock()
	pending := make([]*ResolverNexthop, 0, len(r.updateSet))
	for nh := range r.updateSet {
		pending = append(pending, nh)
	}
	r.updateSet = make(map[*ResolverNexthop]struct{})
	r.updateMu.Unlock()

	for _, nh := range pending {
		for partition, rps := range nh.dependentsSnapshot() {
			for _, rp := range rps {
				r.partitions[partition].scheduleUpdate(rp)
			}
		}
	}
}

func (r *PathResolver) retryIfReady() {
	r.actor.RetryDeleteIfDeleted()
}

// MayDelete implements lifetime.Hooks: the resolver is ready to destroy
// once its nexthop map, remove-in-flight set, and reg/unreg set are all
// empty (spec §4.7 "Delete actor").
func (r *PathResolver) MayDelete() bool {
	r.mu.Lock()
	ready := len(r.nexthops) == 0 && len(r.removeInFlight) == 0 && len(r.regUnregSet) == 0
	r.mu.Unlock()
	if ready {
		r.updateMu.Lock()
		stillUpdating := len(r.updateSet) != 0
		r.updateMu.Unlock()
		if stillUpdating {
			panic("resolver: update set non-empty with no nexthops left to update")
		}
	}
	return ready
}

// Shutdown implements lifetime.Hooks. The resolver doesn't need its own
// one-shot teardown action: readiness is entirely a function of its
// nexthop bookkeeping draining through the ordinary config/update passes,
// which keep running regardless of the actor's own state.
func (r *PathResolver) Shutdown() {}

// DeleteComplete implements lifetime.Hooks.
func (r *PathResolver) DeleteComplete() {}

// Destroy implements lifetime.Hooks: the host table is the only legal
// owner of the resolver's memory (spec §4.7 "Destroy invokes the table's
// DestroyPathResolver").
func (r *PathResolver) Destroy() {
	r.hostTable.DestroyPathResolver()
}
