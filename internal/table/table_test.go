// SPDX-License-Identifier: MPL-2.0

package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contrail-io/controlplane/internal/lifetime"
	"github.com/contrail-io/controlplane/internal/table"
)

type noopHooks struct{}

func (noopHooks) MayDelete() bool { return true }
func (noopHooks) Shutdown()       {}
func (noopHooks) DeleteComplete() {}
func (noopHooks) Destroy()        {}

func TestRegisterFiresImmediatelyOnExistingRoute(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	route := table.NewRoute("10.0.0.1")
	route.SetPaths([]*table.Path{{Peer: "p1", Feasible: true}})
	tbl.SetRoute(route)

	var got *table.Route
	tbl.Listener().Register("10.0.0.1", func(added bool, r *table.Route) {
		if added {
			got = r
		}
	})
	require.Equal(t, route, got)
}

func TestSetRouteNotifiesOnlyMatchingListeners(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	var hitA, hitB int
	tbl.Listener().Register("10.0.0.1", func(added bool, r *table.Route) { hitA++ })
	tbl.Listener().Register("10.0.0.2", func(added bool, r *table.Route) { hitB++ })

	tbl.SetRoute(table.NewRoute("10.0.0.1"))
	require.Equal(t, 1, hitA)
	require.Equal(t, 0, hitB)
}

func TestDeleteRouteFiresMatchDelete(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	route := table.NewRoute("10.0.0.1")
	tbl.SetRoute(route)

	var deletedRoute *table.Route
	var added bool
	tbl.Listener().Register("10.0.0.1", func(a bool, r *table.Route) {
		added = a
		deletedRoute = r
	})

	tbl.DeleteRoute("10.0.0.1")
	require.False(t, added)
	require.Equal(t, route, deletedRoute)
	require.Nil(t, tbl.Route("10.0.0.1"))
}

func TestRemoveConfirmsInline(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	id := tbl.Listener().Register("10.0.0.1", func(bool, *table.Route) {})

	var confirmed bool
	tbl.Listener().Remove(id, func() { confirmed = true })
	require.True(t, confirmed)

	tbl.SetRoute(table.NewRoute("10.0.0.1"))
}

func TestRouteOnEmptyFiresOnlyOnFirstTransitionToEmpty(t *testing.T) {
	route := table.NewRoute("10.0.0.1")
	var fired int
	route.OnEmpty(func() { fired++ })

	route.SetPaths(nil) // never had a path: no transition
	require.Equal(t, 0, fired)

	route.SetPaths([]*table.Path{{Peer: "p1", Feasible: true}})
	require.Equal(t, 0, fired)

	route.SetPaths(nil)
	require.Equal(t, 1, fired)

	route.SetPaths(nil)
	require.Equal(t, 1, fired)
}

func TestRouteDBStateRoundTrips(t *testing.T) {
	route := table.NewRoute("10.0.0.1")
	_, ok := route.DBState(1)
	require.False(t, ok)

	route.SetDBState(1, "state-a")
	v, ok := route.DBState(1)
	require.True(t, ok)
	require.Equal(t, "state-a", v)

	route.ClearDBState(1)
	_, ok = route.DBState(1)
	require.False(t, ok)
}

func TestRankComparatorTiesOnEqualPref(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	cmp := tbl.Comparator()
	a := &table.Path{Pref: 100}
	b := &table.Path{Pref: 100}
	c := &table.Path{Pref: 50}

	require.True(t, cmp.Tied(a, b))
	require.False(t, cmp.Tied(a, c))
}

func TestPathForwardingKey(t *testing.T) {
	p := &table.Path{NexthopAddr: "1.1.1.1", Tunnel: "gre"}
	require.Equal(t, [2]string{"1.1.1.1", "gre"}, p.ForwardingKey())
}

func TestMemoryDestroyPathResolverInvokesCallback(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	var called bool
	tbl.OnDestroyPathResolver(func() { called = true })
	tbl.DestroyPathResolver()
	require.True(t, called)
}

func TestMemoryDeletingGatesRegistration(t *testing.T) {
	m := lifetime.NewManager(nil)
	defer m.Shutdown()
	tbl := table.NewMemory("t", 1, m, noopHooks{})

	require.False(t, tbl.Deleting())
	tbl.MarkDeleting()
	require.True(t, tbl.Deleting())
}
