// SPDX-License-Identifier: MPL-2.0

package resolver

import "github.com/contrail-io/controlplane/internal/table"

// synthesizeResolvedPath builds a resolved path from a requesting path's
// routing attributes and a nexthop path's forwarding attributes (spec
// §4.6 step 3). Extended communities are not carried over: table.Path has no
// extended-community field, so routing.ExtendedCommunities does not reach
// the resolved path.
func synthesizeResolvedPath(routing table.RoutingAttrs, nexthopPath *table.Path) *table.Path {
	return &table.Path{
		Peer:     routing.Peer,
		PathID:   routing.PathID,
		Feasible: true,
		RD:       nexthopPath.RD,

		NexthopAddr:    nexthopPath.NexthopAddr,
		Label:          nexthopPath.Label,
		Tunnel:         nexthopPath.Tunnel,
		SecurityGroups: append([]uint32(nil), nexthopPath.SecurityGroups...),
		LoadBalanceSet: nexthopPath.LoadBalanceSet,

		AttrPtr: nexthopPath.AttrPtr,
	}
}
