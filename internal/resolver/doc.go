// SPDX-License-Identifier: MPL-2.0

/*
Package resolver implements the path resolver: the subsystem that resolves
a requesting path's nexthop address against a backing table's routes and
synthesizes resolved paths on the requesting path's host route, recomputing
them whenever the matched route's best-path group changes.

It is built entirely on top of internal/lifetime (its own delete actor,
and a lifetime.Ref pinning it to its host table's deleter) and
internal/workerctx (the named worker contexts and the mutual-exclusion
rules that let it avoid locking its nexthop map on every database-worker
match callback). internal/table supplies the handful of interfaces it
needs from the surrounding routing table: route lookup, a condition
listener, and the table's own best-path comparator.
*/
package resolver
