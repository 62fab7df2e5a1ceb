// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/contrail-io/controlplane/internal/diag"
	"github.com/contrail-io/controlplane/internal/lifetime"
	"github.com/contrail-io/controlplane/internal/resolver"
	"github.com/contrail-io/controlplane/internal/table"
	"github.com/contrail-io/controlplane/internal/workerctx"
)

type tableHooks struct{}

func (tableHooks) MayDelete() bool { return true }
func (tableHooks) Shutdown()       {}
func (tableHooks) DeleteComplete() {}
func (tableHooks) Destroy()        {}

// scenario wires one in-memory table, one resolver built on it, and a
// handful of requesting paths resolving against a single nexthop address,
// so callers can drive it and then read back PathResolver.Snapshot().
type scenario struct {
	manager  *lifetime.Manager
	sched    *workerctx.Scheduler
	tbl      *table.Memory
	resolver *resolver.PathResolver
	host     *table.Route
}

const partitions = 4

// validateConfig checks the flags a real deployment would pass to the
// demo before building anything, accumulating problems the way the
// table/config loading glue in a larger deployment would.
func validateConfig(partitionCount int) diag.Diagnostics {
	var diags diag.Diagnostics
	if partitionCount <= 0 {
		diags = diags.Append(diag.Sourceless(diag.Error, "invalid partition count", fmt.Sprintf("got %d, want > 0", partitionCount)))
	}
	return diags
}

func newScenario() *scenario {
	manager := lifetime.NewManager(nil)
	sched := workerctx.NewScheduler(partitions)
	tbl := table.NewMemory("demo-table", partitions, manager, tableHooks{})
	r := resolver.NewPathResolver(tbl, func(string) table.Table { return tbl }, manager, sched)

	return &scenario{
		manager:  manager,
		sched:    sched,
		tbl:      tbl,
		resolver: r,
		host:     table.NewRoute("198.51.100.0/32"),
	}
}

// seed starts resolution for a handful of paths all pointing at the same
// nexthop, then installs two ECMP-tied nexthop paths for it.
func (s *scenario) seed() {
	const nexthop = table.Address("192.0.2.1")

	for i := 0; i < 3; i++ {
		req := &resolver.RequestingPath{
			ID:           fmt.Sprintf("demo-path-%d-%d", i, table.NewPathID()),
			NexthopAddr:  nexthop,
			BackingTable: s.tbl.Name(),
			HostRoute:    s.host,
			Attrs:        table.RoutingAttrs{Peer: "peer-demo"},
		}
		s.sched.Run(context.Background(), workerctx.Context{Tag: workerctx.Table, Instance: i % partitions}, func(context.Context) {
			s.resolver.StartPathResolution(i%partitions, req)
		})
	}

	nhRoute := table.NewRoute(nexthop)
	nhRoute.SetPaths([]*table.Path{
		{Peer: "nh-a", Feasible: true, RD: "64512:1", Pref: 100, NexthopAddr: "203.0.113.1", Label: 1001, AttrPtr: 1},
		{Peer: "nh-b", Feasible: true, RD: "64512:2", Pref: 100, NexthopAddr: "203.0.113.2", Label: 1002, AttrPtr: 2},
	})
	s.tbl.SetRoute(nhRoute)
}

func (s *scenario) waitForConvergence() {
	time.Sleep(50 * time.Millisecond)
}
