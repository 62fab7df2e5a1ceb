// SPDX-License-Identifier: MPL-2.0

// Package table defines the minimal contract the resolver needs from a
// partitioned database table: routes and their paths, a condition listener
// that reports host-route matches, a per-route db-state slot for stashing
// listener-owned state, and the table's own best-path comparator (the
// resolver must reuse it rather than invent its own, per the framework's
// resolved-path recomputation rules).
//
// This package also provides a single in-memory implementation, Memory,
// used by the resolver's tests and by the demo command. A real deployment
// would back Table with an actual routing table; nothing in internal/table
// or internal/resolver assumes otherwise.
package table
