// SPDX-License-Identifier: MPL-2.0

/*
Package lifetime implements ordered, concurrent-safe teardown for a graph of
long-lived objects whose dependencies are only known at runtime: BGP
servers, routing instances, tables, path resolvers, route aggregators, and
the worker state tied to each table partition all embed an *Actor and wire
up *Refs to the actors they depend on.

Deletion can be requested from any goroutine by calling Actor.Delete, but
every other part of the lifecycle -- cascading that delete to dependents,
running the object's own Shutdown hook, checking whether it's safe to
finish, and finally calling DeleteComplete/Destroy -- runs serialized on the
owning Manager's single worker, so a Hooks implementation never has to
worry about any of its own methods running concurrently with each other.

The framework deliberately does not support reviving an actor once it has
reached Destroyed, and does not impose any cross-manager ordering: if two
managers both have work to do, nothing here decides which goes first.
*/
package lifetime
