package node

import (
	"github.com/mmr-tortoise/dockgrid/internal/capabilities"
)

// RouteEntry is one group of the routing table: a stereotype and the
// ordered factories able to serve it. Factories within a group are
// interchangeable replicas; their only distinguishing identity is
// position.
type RouteEntry struct {
	// Stereotype is the capability set this group advertises.
	Stereotype capabilities.Set

	// Factories are the session factories bound to the stereotype, in
	// construction order.
	Factories []*SessionFactory
}

// Route is the capability-to-factory routing table produced by bootstrap.
// Groups keep their insertion order, and so do factories within a group.
// A Route is immutable once returned to the caller; the node registration
// collaborator only reads it.
type Route struct {
	entries []RouteEntry
	index   map[string]int // canonical stereotype -> entries position
}

// newRoute creates an empty routing table.
func newRoute() *Route {
	return &Route{index: make(map[string]int)}
}

// add appends a factory to the stereotype's group, creating the group on
// first use. Grouping is by canonical form, so stereotypes that differ
// only in key order share a group.
func (r *Route) add(stereotype capabilities.Set, factory *SessionFactory) {
	key := stereotype.Canonical()
	pos, ok := r.index[key]
	if !ok {
		pos = len(r.entries)
		r.index[key] = pos
		r.entries = append(r.entries, RouteEntry{Stereotype: stereotype})
	}
	r.entries[pos].Factories = append(r.entries[pos].Factories, factory)
}

// Entries returns the table's groups in insertion order. The returned
// slices are copies; callers cannot grow or reorder a group through them.
// The factory pointers themselves are shared.
func (r *Route) Entries() []RouteEntry {
	entries := make([]RouteEntry, len(r.entries))
	for i, entry := range r.entries {
		entries[i] = RouteEntry{
			Stereotype: entry.Stereotype,
			Factories:  append([]*SessionFactory(nil), entry.Factories...),
		}
	}
	return entries
}

// Factories returns a copy of the factories registered for the given
// stereotype, or nil when the table has no matching group.
func (r *Route) Factories(stereotype capabilities.Set) []*SessionFactory {
	pos, ok := r.index[stereotype.Canonical()]
	if !ok {
		return nil
	}
	return append([]*SessionFactory(nil), r.entries[pos].Factories...)
}

// Match returns a copy of the factories of the first group whose
// stereotype satisfies the session request, in table order. Returns nil
// when no group matches.
func (r *Route) Match(request capabilities.Set) []*SessionFactory {
	for _, entry := range r.entries {
		if entry.Stereotype.Matches(request) {
			return append([]*SessionFactory(nil), entry.Factories...)
		}
	}
	return nil
}

// Len returns the number of stereotype groups.
func (r *Route) Len() int {
	return len(r.entries)
}

// Empty reports whether the table has no groups, which is the case when
// container sessions are disabled.
func (r *Route) Empty() bool {
	return len(r.entries) == 0
}
