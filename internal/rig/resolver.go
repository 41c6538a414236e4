package rig

import (
	"armature/internal/components"
	"armature/internal/descriptor"
)

// BuildOrderEntry pairs a component with the parent it resolved against. The
// parent is nil for roots and for components whose declared parent was not
// instantiated when the order was computed.
type BuildOrderEntry struct {
	Component *components.Component
	Parent    *components.Component
}

// ResolveBuildOrder orders the requested components so that a component never
// precedes its parent. Ancestors outside the requested subset are pulled in
// automatically and transitively, each component is placed exactly once, and
// sibling ties keep the input iteration order.
//
// The parents map must cover the entire instantiated set, keyed by component
// identity; a nil value marks a root. The walk is depth-first pre-order on
// the parent edge with a visited set, so cyclic parent declarations terminate
// instead of recursing forever.
func ResolveBuildOrder(requested []*components.Component, parents map[descriptor.Identity]*components.Component) []BuildOrderEntry {
	ordered := make([]BuildOrderEntry, 0, len(requested))
	visited := make(map[descriptor.Identity]bool, len(requested))

	var visit func(comp *components.Component)
	visit = func(comp *components.Component) {
		id := comp.Identity()
		if visited[id] {
			return
		}
		visited[id] = true
		parent := parents[id]
		if parent != nil {
			visit(parent)
		}
		ordered = append(ordered, BuildOrderEntry{Component: comp, Parent: parent})
	}

	for _, comp := range requested {
		visit(comp)
	}
	return ordered
}
