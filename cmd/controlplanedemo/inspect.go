// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/contrail-io/controlplane/internal/resolver"
)

// InspectCommand builds the same scenario as RunCommand but only prints the
// resolver's read-only introspection snapshot, as a minimal stand-in for
// whatever introspection surface a real deployment would scrape.
type InspectCommand struct {
	Ui cli.Ui
}

func (c *InspectCommand) Help() string {
	return strings.TrimSpace(`
Usage: controlplanedemo inspect

  Builds the demo scenario, lets it converge, and prints the resolver's
  aggregate introspection snapshot: nexthop count, pending
  registration/removal sets, and per-partition resolver-path counts.
`)
}

func (c *InspectCommand) Synopsis() string {
	return "Print the resolver's introspection snapshot"
}

func (c *InspectCommand) Run(args []string) int {
	s := newScenario()
	s.seed()
	s.waitForConvergence()

	c.Ui.Output(printSnapshot(s.resolver.Snapshot()))
	s.manager.Shutdown()
	return 0
}

func printSnapshot(snap resolver.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "nexthops=%d reg_unreg_pending=%d remove_in_flight=%d\n", snap.Nexthops, snap.RegUnregSet, snap.RemoveInFlight)
	for _, p := range snap.Partitions {
		fmt.Fprintf(&b, "  partition[%d]: resolver_paths=%d update_pending=%d\n", p.Index, p.ResolverPaths, p.UpdatePending)
	}
	return strings.TrimRight(b.String(), "\n")
}
