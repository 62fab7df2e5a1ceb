// SPDX-License-Identifier: MPL-2.0

package resolver

import "github.com/contrail-io/controlplane/internal/table"

// NexthopKey identifies a ResolverNexthop: the address being resolved plus
// the name of the table that backs it. Two requesting paths resolving the
// same address against the same backing table share one ResolverNexthop.
type NexthopKey struct {
	Address      table.Address
	BackingTable string
}

// RequestingPath is the caller-owned record describing a single path that
// wants resolution: which address to resolve, which table backs that
// address, which host route resolved paths should be installed on, and the
// routing attributes a resolved path inherits directly from it.
type RequestingPath struct {
	// ID is an opaque, caller-assigned identifier used only for the
	// partition's path->ResolverPath map key and for introspection; the
	// resolver never interprets it.
	ID string

	NexthopAddr  table.Address
	BackingTable string

	HostRoute *table.Route
	Attrs     table.RoutingAttrs
}
