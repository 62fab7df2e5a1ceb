// SPDX-License-Identifier: MPL-2.0

package resolver_test

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/contrail-io/controlplane/internal/lifetime"
	"github.com/contrail-io/controlplane/internal/resolver"
	"github.com/contrail-io/controlplane/internal/table"
	"github.com/contrail-io/controlplane/internal/workerctx"
)

func resolvedLabels(paths []*table.Path) []uint32 {
	out := make([]uint32, len(paths))
	for i, p := range paths {
		out[i] = p.Label
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type noopTableHooks struct{}

func (noopTableHooks) MayDelete() bool { return true }
func (noopTableHooks) Shutdown()       {}
func (noopTableHooks) DeleteComplete() {}
func (noopTableHooks) Destroy()        {}

// countingListener wraps a table.ConditionListener and counts Register and
// Remove calls, so tests can assert a nexthop was never actually subscribed
// (scenario 5: register-then-immediate-stop).
type countingListener struct {
	table.ConditionListener
	registers int32
	removes   int32
}

func (c *countingListener) Register(addr table.Address, onMatch func(bool, *table.Route)) int {
	atomic.AddInt32(&c.registers, 1)
	return c.ConditionListener.Register(addr, onMatch)
}

func (c *countingListener) Remove(id int, done func()) {
	atomic.AddInt32(&c.removes, 1)
	c.ConditionListener.Remove(id, done)
}

type countingTable struct {
	*table.Memory
	listener *countingListener
}

func newCountingTable(name string, partitions int, manager *lifetime.Manager) *countingTable {
	m := table.NewMemory(name, partitions, manager, noopTableHooks{})
	return &countingTable{Memory: m, listener: &countingListener{ConditionListener: m}}
}

func (c *countingTable) Listener() table.ConditionListener { return c.listener }

func runOnTable(sched *workerctx.Scheduler, partition int, fn func(context.Context)) {
	sched.Run(context.Background(), workerctx.Context{Tag: workerctx.Table, Instance: partition}, fn)
}

// TestResolverPathNexthopChange covers scenario 4: updating a resolver
// path's nexthop address tears down the old nexthop and brings up a new
// one, with the resolved-path set transitioning in exactly one pass once
// the new nexthop matches.
func TestResolverPathNexthopChange(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	sched := workerctx.NewScheduler(1)

	tbl := newCountingTable("t1", 1, m)
	r := resolver.NewPathResolver(tbl, func(string) table.Table { return tbl }, m, sched)

	hostRoute := table.NewRoute("p1-host")
	req := &resolver.RequestingPath{
		ID: "p1", NexthopAddr: "10.0.0.1", BackingTable: "t1",
		HostRoute: hostRoute, Attrs: table.RoutingAttrs{Peer: "peer1"},
	}

	var rp *resolver.ResolverPath
	runOnTable(sched, 0, func(context.Context) {
		rp = r.StartPathResolution(0, req)
	})

	require.Eventually(t, func() bool { return r.Snapshot().Nexthops == 1 }, time.Second, time.Millisecond)

	nh1Route := table.NewRoute("10.0.0.1")
	nh1Route.SetPaths([]*table.Path{{Peer: "nh1", Feasible: true, RD: "rd1", NexthopAddr: "10.0.0.1", Label: 100, AttrPtr: 1}})
	tbl.SetRoute(nh1Route)

	require.Eventually(t, func() bool {
		paths := hostRoute.Paths()
		return len(paths) == 1 && paths[0].Label == 100
	}, time.Second, time.Millisecond)

	req2 := &resolver.RequestingPath{
		ID: "p1", NexthopAddr: "10.0.0.2", BackingTable: "t1",
		HostRoute: hostRoute, Attrs: req.Attrs,
	}
	runOnTable(sched, 0, func(context.Context) {
		rp = r.UpdatePathResolution(0, rp, req2)
	})
	_ = rp

	require.Eventually(t, func() bool { return r.Snapshot().Nexthops == 1 }, time.Second, time.Millisecond)

	nh2Route := table.NewRoute("10.0.0.2")
	nh2Route.SetPaths([]*table.Path{{Peer: "nh2", Feasible: true, RD: "rd2", NexthopAddr: "10.0.0.2", Label: 200, AttrPtr: 2}})
	tbl.SetRoute(nh2Route)

	require.Eventually(t, func() bool {
		paths := hostRoute.Paths()
		return len(paths) == 1 && paths[0].Label == 200
	}, time.Second, time.Millisecond)
}

// TestRegisterThenImmediateStop covers scenario 5: starting and stopping
// resolution for the same path within a single table callback must never
// touch the listener at all.
func TestRegisterThenImmediateStop(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	sched := workerctx.NewScheduler(1)

	tbl := newCountingTable("t2", 1, m)
	r := resolver.NewPathResolver(tbl, func(string) table.Table { return tbl }, m, sched)

	hostRoute := table.NewRoute("p2-host")
	req := &resolver.RequestingPath{
		ID: "p2", NexthopAddr: "10.0.0.9", BackingTable: "t2",
		HostRoute: hostRoute, Attrs: table.RoutingAttrs{Peer: "peer2"},
	}

	runOnTable(sched, 0, func(context.Context) {
		rp := r.StartPathResolution(0, req)
		r.StopPathResolution(0, rp)
	})

	require.Eventually(t, func() bool { return r.Snapshot().Nexthops == 0 }, time.Second, time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&tbl.listener.registers))
	require.Zero(t, atomic.LoadInt32(&tbl.listener.removes))
}

// TestBestPathOnlyFilter covers scenario 6: only the ECMP best group is
// installed as resolved paths, and a newly-tied path joins it on a later
// recomputation.
func TestBestPathOnlyFilter(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	sched := workerctx.NewScheduler(1)

	tbl := table.NewMemory("t3", 1, m, noopTableHooks{})
	r := resolver.NewPathResolver(tbl, func(string) table.Table { return tbl }, m, sched)

	hostRoute := table.NewRoute("p3-host")
	req := &resolver.RequestingPath{
		ID: "p3", NexthopAddr: "10.0.0.5", BackingTable: "t3",
		HostRoute: hostRoute, Attrs: table.RoutingAttrs{Peer: "peer3"},
	}

	runOnTable(sched, 0, func(context.Context) {
		r.StartPathResolution(0, req)
	})

	nhRoute := table.NewRoute("10.0.0.5")
	nhRoute.SetPaths([]*table.Path{
		{Peer: "a", Feasible: true, RD: "rd-a", Pref: 100, NexthopAddr: "1.1.1.1", Label: 1, AttrPtr: 1},
		{Peer: "b", Feasible: true, RD: "rd-b", Pref: 100, NexthopAddr: "1.1.1.2", Label: 2, AttrPtr: 2},
		{Peer: "c", Feasible: true, RD: "rd-c", Pref: 100, NexthopAddr: "1.1.1.3", Label: 3, AttrPtr: 3},
		{Peer: "d", Feasible: true, RD: "rd-d", Pref: 50, NexthopAddr: "1.1.1.4", Label: 4, AttrPtr: 4},
	})
	tbl.SetRoute(nhRoute)

	require.Eventually(t, func() bool { return len(hostRoute.Paths()) == 3 }, time.Second, time.Millisecond)
	if diff := cmp.Diff([]uint32{1, 2, 3}, resolvedLabels(hostRoute.Paths())); diff != "" {
		t.Fatalf("resolved labels mismatch before the tied path joins (-want +got):\n%s", diff)
	}

	// The route's paths stay in best-path order, so the new tied path goes
	// ahead of the worse path d.
	paths := nhRoute.Paths()
	paths = append(paths[:3:3], &table.Path{Peer: "e", Feasible: true, RD: "rd-e", Pref: 100, NexthopAddr: "1.1.1.5", Label: 5, AttrPtr: 5}, paths[3])
	nhRoute.SetPaths(paths)
	tbl.SetRoute(nhRoute)

	require.Eventually(t, func() bool { return len(hostRoute.Paths()) == 4 }, time.Second, time.Millisecond)
	if diff := cmp.Diff([]uint32{1, 2, 3, 5}, resolvedLabels(hostRoute.Paths())); diff != "" {
		t.Fatalf("resolved labels mismatch after the tied path joins (-want +got):\n%s", diff)
	}
}
