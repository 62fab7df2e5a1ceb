// SPDX-License-Identifier: MPL-2.0

// Package workerctx implements the cooperative, named-task scheduler that
// every other package in this module relies on instead of general-purpose
// goroutine pools. A small, fixed set of named worker contexts is declared
// up front (table partitions, the configuration worker, the resolver's two
// workers, one deletion worker per lifetime manager); the scheduler enforces
// the mutual-exclusion rules between them so that callers can rely on those
// rules instead of taking their own locks.
package workerctx

import (
	"context"
	"fmt"

	"github.com/apparentlymart/go-workgraph/workgraph"
)

// Tag identifies one of the named worker contexts described in the
// concurrency model. Tags that are partitioned (Table, ResolverPath) are
// always paired with a partition index; singleton tags (Config,
// ResolverNexthop, Lifetime) ignore the index.
type Tag int

const (
	// Table is the database table worker; one logical instance per
	// partition.
	Table Tag = iota
	// Config is the single-threaded configuration worker.
	Config
	// ResolverNexthop is the single-threaded resolver nexthop update
	// worker.
	ResolverNexthop
	// ResolverPath is the per-partition resolver-path worker.
	ResolverPath
	// Lifetime is a lifetime manager's own deletion worker.
	Lifetime
)

func (t Tag) String() string {
	switch t {
	case Table:
		return "table"
	case Config:
		return "config"
	case ResolverNexthop:
		return "resolver-nexthop"
	case ResolverPath:
		return "resolver-path"
	case Lifetime:
		return "lifetime"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// Context identifies a single worker-context instance: a tag plus, for
// partitioned tags, the partition (or manager) index.
type Context struct {
	Tag      Tag
	Instance int
}

func (c Context) String() string {
	switch c.Tag {
	case Table, ResolverPath:
		return fmt.Sprintf("%s[%d]", c.Tag, c.Instance)
	default:
		return c.Tag.String()
	}
}

type contextKey rune

const workerContextKey = contextKey('W')
const runningOnContextKey = contextKey('C')

// WithWorker returns a child of ctx associated with the given
// [workgraph.Worker], which WorkerFromContext reads back. Scheduler.Run does
// not consult it, so a reentrant Run is not detected or reported.
func WithWorker(parent context.Context, worker *workgraph.Worker) context.Context {
	return context.WithValue(parent, workerContextKey, worker)
}

// WithNewWorker is like WithWorker but allocates a fresh worker.
func WithNewWorker(parent context.Context) context.Context {
	return WithWorker(parent, workgraph.NewWorker())
}

// WorkerFromContext returns the worker associated with ctx, or nil if none
// has been attached.
func WorkerFromContext(ctx context.Context) *workgraph.Worker {
	worker, _ := ctx.Value(workerContextKey).(*workgraph.Worker)
	return worker
}

// WithRunningOn returns a child of ctx that records which named worker
// context a callback is executing on, so that code deep in a call stack
// (for example a LifetimeActor's Shutdown hook) can assert it was invoked
// from the context the contract requires.
func WithRunningOn(parent context.Context, on Context) context.Context {
	return context.WithValue(parent, runningOnContextKey, on)
}

// RunningOn returns the worker context a callback is executing on, and
// whether one was recorded at all.
func RunningOn(ctx context.Context) (Context, bool) {
	on, ok := ctx.Value(runningOnContextKey).(Context)
	return on, ok
}
