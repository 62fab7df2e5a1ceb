// SPDX-License-Identifier: MPL-2.0

package workerctx

import (
	"context"
	"sync"
)

// Scheduler enforces the mutual-exclusion rules between the named worker
// contexts for a single table (and the resolver built on top of it):
//
//  1. Config excludes ResolverNexthop and every ResolverPath instance.
//  2. Table[p] excludes ResolverNexthop and ResolverPath[p] (same partition).
//  3. ResolverNexthop excludes every ResolverPath instance (and, since
//     Config, Table and ResolverPath all hold nexthop for reading, runs
//     alone).
//  4. Partitions run in parallel with each other on both Table and
//     ResolverPath.
//
// It does this with two RWMutexes plus one Mutex per partition, rather than
// a single global lock, so that unrelated partitions still run concurrently.
// Callers do not take these locks directly; they call Run on the Context
// they want to execute as, and the scheduler figures out which locks that
// requires.
type Scheduler struct {
	partitions int

	// nexthop is held for writing by the singleton resolver-nexthop
	// worker, and for reading by everything else, so that nothing else
	// runs while a nexthop pass is in flight.
	nexthop sync.RWMutex

	// config is held for writing by the singleton configuration worker,
	// and for reading by every resolver-path partition, so that no
	// partition observes a half-applied configuration change.
	config sync.RWMutex

	// perPartition[p] is held exclusively by whichever of Table[p] or
	// ResolverPath[p] is currently running, serializing the two against
	// each other without affecting other partitions.
	perPartition []sync.Mutex
}

// NewScheduler creates a scheduler for a table with the given number of
// partitions.
func NewScheduler(partitions int) *Scheduler {
	return &Scheduler{
		partitions:   partitions,
		perPartition: make([]sync.Mutex, partitions),
	}
}

// Partitions returns the partition count the scheduler was built with.
func (s *Scheduler) Partitions() int {
	return s.partitions
}

// Run executes fn as the given worker context, holding whatever locks are
// necessary to honor the mutual-exclusion rules, and tags ctx so that fn can
// discover (via RunningOn) which context it is executing as.
func (s *Scheduler) Run(ctx context.Context, on Context, fn func(context.Context)) {
	ctx = WithRunningOn(ctx, on)
	switch on.Tag {
	case Config:
		s.config.Lock()
		defer s.config.Unlock()
		s.nexthop.RLock()
		defer s.nexthop.RUnlock()
		fn(ctx)
	case ResolverNexthop:
		s.nexthop.Lock()
		defer s.nexthop.Unlock()
		fn(ctx)
	case Table:
		s.nexthop.RLock()
		defer s.nexthop.RUnlock()
		pm := &s.perPartition[on.Instance]
		pm.Lock()
		defer pm.Unlock()
		fn(ctx)
	case ResolverPath:
		s.nexthop.RLock()
		defer s.nexthop.RUnlock()
		s.config.RLock()
		defer s.config.RUnlock()
		pm := &s.perPartition[on.Instance]
		pm.Lock()
		defer pm.Unlock()
		fn(ctx)
	default:
		fn(ctx)
	}
}
