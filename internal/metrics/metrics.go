// SPDX-License-Identifier: MPL-2.0

// Package metrics exposes the framework's introspection counters (spec
// §4.7 "Introspection") as Prometheus gauges, for processes that want them
// scraped rather than printed. It is entirely optional: nothing in
// internal/lifetime, internal/resolver, or internal/table imports this
// package, so a caller that doesn't want Prometheus wiring can ignore it
// and read the plain-Go snapshots directly.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/contrail-io/controlplane/internal/resolver"
)

// Collectors holds the gauges this package registers. Callers that already
// have a prometheus.Registry pass it to NewCollectors; tests and simple
// demos can use prometheus.NewRegistry() to avoid touching the global
// default registry.
type Collectors struct {
	deferrals      prometheus.Gauge
	nexthops       prometheus.Gauge
	regUnregSet    prometheus.Gauge
	removeInFlight prometheus.Gauge
	resolverPaths  *prometheus.GaugeVec
	updatePending  *prometheus.GaugeVec
}

// NewCollectors creates and registers the gauges with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		deferrals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "lifetime",
			Name:      "deferrals_total",
			Help:      "Number of times a manager has deferred an actor's destruction because MayDestroy was false.",
		}),
		nexthops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "resolver",
			Name:      "nexthops",
			Help:      "Current number of resolver nexthops tracked by the resolver.",
		}),
		regUnregSet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "resolver",
			Name:      "reg_unreg_pending",
			Help:      "Number of resolver nexthops pending a configuration pass.",
		}),
		removeInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "resolver",
			Name:      "remove_in_flight",
			Help:      "Number of resolver nexthops awaiting listener removal confirmation.",
		}),
		resolverPaths: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "resolver",
			Name:      "resolver_paths",
			Help:      "Current number of resolver paths tracked, per partition.",
		}, []string{"partition"}),
		updatePending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "resolver",
			Name:      "update_pending",
			Help:      "Number of resolver paths pending recomputation, per partition.",
		}, []string{"partition"}),
	}
	reg.MustRegister(c.deferrals, c.nexthops, c.regUnregSet, c.removeInFlight, c.resolverPaths, c.updatePending)
	return c
}

// ObserveResolver updates the gauges from a point-in-time resolver
// snapshot. Callers typically do this on a timer, since the framework has
// no push-based notification for introspection state changing.
func (c *Collectors) ObserveResolver(deferrals int64, snap resolver.Snapshot) {
	c.deferrals.Set(float64(deferrals))
	c.nexthops.Set(float64(snap.Nexthops))
	c.regUnregSet.Set(float64(snap.RegUnregSet))
	c.removeInFlight.Set(float64(snap.RemoveInFlight))
	for _, p := range snap.Partitions {
		label := prometheus.Labels{"partition": strconv.Itoa(p.Index)}
		c.resolverPaths.With(label).Set(float64(p.ResolverPaths))
		c.updatePending.With(label).Set(float64(p.UpdatePending))
	}
}
