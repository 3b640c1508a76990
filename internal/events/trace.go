package events

import (
	"sort"

	"taskflow/internal/ident"
)

// Index resolves causation references within a set of events, typically one correlation.
type Index struct {
	byID     map[ident.EventID]CausalEvent
	children map[ident.EventID][]CausalEvent
	order    []CausalEvent
}

// NewIndex indexes evts. Duplicate event ids keep the first occurrence.
func NewIndex(evts []CausalEvent) *Index {
	idx := &Index{
		byID:     make(map[ident.EventID]CausalEvent, len(evts)),
		children: map[ident.EventID][]CausalEvent{},
	}
	for _, e := range evts {
		if _, dup := idx.byID[e.EventID]; dup {
			continue
		}
		idx.byID[e.EventID] = e
		idx.order = append(idx.order, e)
	}
	for _, e := range idx.order {
		if e.CausationID == nil {
			continue
		}
		parent := ident.Convert[ident.Event](*e.CausationID)
		idx.children[parent] = append(idx.children[parent], e)
	}
	for id := range idx.children {
		sortByTime(idx.children[id])
	}
	return idx
}

// Cause returns the event that directly produced e, if it is indexed.
func (idx *Index) Cause(e CausalEvent) (CausalEvent, bool) {
	if e.CausationID == nil {
		return CausalEvent{}, false
	}
	parent, ok := idx.byID[ident.Convert[ident.Event](*e.CausationID)]
	return parent, ok
}

// Trace follows causation hops from e back to the earliest reachable event.
// The result starts with e. A missing cause or a cycle ends the walk.
func (idx *Index) Trace(e CausalEvent) []CausalEvent {
	out := []CausalEvent{e}
	seen := map[ident.EventID]bool{e.EventID: true}
	cur := e
	for {
		parent, ok := idx.Cause(cur)
		if !ok || seen[parent.EventID] {
			return out
		}
		seen[parent.EventID] = true
		out = append(out, parent)
		cur = parent
	}
}

// Children returns the events directly caused by id, oldest first.
func (idx *Index) Children(id ident.EventID) []CausalEvent {
	return idx.children[id]
}

// Roots returns events whose cause is absent from the index, oldest first.
func (idx *Index) Roots() []CausalEvent {
	var roots []CausalEvent
	for _, e := range idx.order {
		if _, ok := idx.Cause(e); !ok {
			roots = append(roots, e)
		}
	}
	sortByTime(roots)
	return roots
}

// Node is one event in a causation tree.
type Node struct {
	Event CausalEvent
	Depth int
}

// Walk flattens the causation tree depth-first, parents before children.
// Events caught in a causation cycle cannot be reached from a root; each such
// group is listed at depth 0 from its earliest event.
func (idx *Index) Walk() []Node {
	var out []Node
	seen := map[ident.EventID]bool{}
	var visit func(e CausalEvent, depth int)
	visit = func(e CausalEvent, depth int) {
		if seen[e.EventID] {
			return
		}
		seen[e.EventID] = true
		out = append(out, Node{Event: e, Depth: depth})
		for _, child := range idx.children[e.EventID] {
			visit(child, depth+1)
		}
	}
	for _, root := range idx.Roots() {
		visit(root, 0)
	}
	if len(out) == len(idx.order) {
		return out
	}
	rest := make([]CausalEvent, 0, len(idx.order)-len(out))
	for _, e := range idx.order {
		if !seen[e.EventID] {
			rest = append(rest, e)
		}
	}
	sortByTime(rest)
	for _, e := range rest {
		visit(e, 0)
	}
	return out
}

func sortByTime(evts []CausalEvent) {
	sort.SliceStable(evts, func(i, j int) bool { return evts[i].Timestamp.Before(evts[j].Timestamp) })
}
