// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/contrail-io/controlplane/internal/metrics"
)

// RunCommand drives one scenario to convergence and prints both the
// resolved paths it produced and the resolver's final introspection
// snapshot.
type RunCommand struct {
	Ui cli.Ui
}

func (c *RunCommand) Help() string {
	return strings.TrimSpace(`
Usage: controlplanedemo run

  Starts resolution for a handful of paths against a single nexthop,
  installs two ECMP-tied nexthop paths for it, and prints the resolved
  paths that appear on the host route plus the resolver's introspection
  snapshot.
`)
}

func (c *RunCommand) Synopsis() string {
	return "Run a path-resolution scenario to convergence"
}

func (c *RunCommand) Run(args []string) int {
	if diags := validateConfig(partitions); diags.HasErrors() {
		c.Ui.Error(diags.Err().Error())
		return 1
	}

	s := newScenario()
	reg := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(reg)

	s.seed()
	s.waitForConvergence()

	c.Ui.Output(fmt.Sprintf("resolved paths on host route %s:", s.host.Addr))
	for _, p := range s.host.Paths() {
		c.Ui.Output(fmt.Sprintf("  peer=%s label=%d nexthop=%s rd=%s", p.Peer, p.Label, p.NexthopAddr, p.RD))
	}

	snap := s.resolver.Snapshot()
	collectors.ObserveResolver(s.manager.Deferrals(), snap)
	c.Ui.Output(printSnapshot(snap))

	s.manager.Shutdown()
	return 0
}
