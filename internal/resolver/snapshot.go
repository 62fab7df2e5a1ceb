// SPDX-License-Identifier: MPL-2.0

package resolver

// Snapshot is a read-only introspection record of a PathResolver's current
// bookkeeping (spec §4.7 "Introspection"). Its shape is informational and
// may change without notice; nothing in the framework's contract depends
// on it.
type Snapshot struct {
	Nexthops       int
	RegUnregSet    int
	RemoveInFlight int
	Partitions     []PartitionSnapshot
}

// PartitionSnapshot is one partition's contribution to a resolver
// Snapshot.
type PartitionSnapshot struct {
	Index         int
	ResolverPaths int
	UpdatePending int
}

// Snapshot takes a point-in-time read of the resolver's aggregate state.
func (r *PathResolver) Snapshot() Snapshot {
	r.mu.Lock()
	s := Snapshot{
		Nexthops:       len(r.nexthops),
		RegUnregSet:    len(r.regUnregSet),
		RemoveInFlight: len(r.removeInFlight),
	}
	r.mu.Unlock()

	s.Partitions = make([]PartitionSnapshot, len(r.partitions))
	for i, p := range r.partitions {
		p.mu.Lock()
		s.Partitions[i] = PartitionSnapshot{
			Index:         p.index,
			ResolverPaths: len(p.paths),
			UpdatePending: len(p.updatePending),
		}
		p.mu.Unlock()
	}
	return s
}
