// SPDX-License-Identifier: MPL-2.0

package lifetime

// Ref is a typed dependency edge from a dependent object to the Actor of its
// parent. When the parent's actor cascades deletion, every Ref pointing at
// it fires its onDelete callback exactly once; by convention that callback
// routes to the dependent's own managed-delete entry point, typically its
// own Actor.Delete method.
type Ref struct {
	edge     *DependencyEdge[*Ref]
	actor    *Actor
	onDelete func()
}

// NewRef creates a detached ref. Call Reset to attach it to a provider.
// onDelete is invoked exactly once, on the provider's worker context, when
// the provider actor cascades; it is commonly set to the dependent's own
// Actor.Delete.
func NewRef(onDelete func()) *Ref {
	r := &Ref{onDelete: onDelete}
	r.edge = NewDependencyEdge(r)
	return r
}

// IsSet reports whether the ref currently targets a provider.
func (r *Ref) IsSet() bool {
	return r.edge.IsSet()
}

// Actor returns the provider the ref currently targets, or nil if unset.
func (r *Ref) Actor() *Actor {
	return r.actor
}

// Reset points the ref at actor, detaching it from whatever it targeted
// before. Passing nil detaches the ref without attaching it to anything new
// -- a valid way to sever an edge, for example while re-parenting a
// dependent onto a different provider. Resetting a ref after its current
// provider has already started cascading deletion is not defined; the
// framework assumes callers only reset edges that are still live.
func (r *Ref) Reset(actor *Actor) {
	// Detach from the current provider through its own DependencyRemove,
	// not a bare edge.Clear, so that a provider already waiting to
	// destroy (because this was its last dependent) gets re-evaluated.
	if old := r.actor; old != nil {
		old.DependencyRemove(r)
		r.actor = nil
	}
	if actor == nil {
		return
	}
	actor.DependencyAdd(r)
	r.actor = actor
}

// cascade invokes the ref's onDelete callback exactly once. Called by the
// provider Actor's propagateDelete with the provider's dependent-list mutex
// held, so onDelete must not block or try to re-enter that actor.
func (r *Ref) cascade() {
	if r.onDelete != nil {
		r.onDelete()
	}
}
