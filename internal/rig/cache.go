package rig

import (
	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/scene"
)

// componentCache is the identity-keyed arena of live component instances. The
// façade guarantees at most one instance per identity by routing every lookup
// through it. Iteration follows insertion order so pipeline passes and the
// build-state probe stay deterministic.
type componentCache struct {
	entries map[descriptor.Identity]*components.Component
	order   []descriptor.Identity
}

func newComponentCache() *componentCache {
	return &componentCache{entries: make(map[descriptor.Identity]*components.Component)}
}

func (c *componentCache) get(id descriptor.Identity) (*components.Component, bool) {
	comp, ok := c.entries[id]
	return comp, ok
}

// put inserts or replaces the entry under the component's current identity.
// Replacement keeps the original order slot.
func (c *componentCache) put(comp *components.Component) {
	id := comp.Identity()
	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = comp
}

func (c *componentCache) remove(id descriptor.Identity) {
	if _, exists := c.entries[id]; !exists {
		return
	}
	delete(c.entries, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// rekey moves the entry cached under old to the component's current identity.
// Used after renames and side changes so lookups keep resolving.
func (c *componentCache) rekey(old descriptor.Identity, comp *components.Component) {
	c.remove(old)
	c.put(comp)
}

func (c *componentCache) clear() {
	c.entries = make(map[descriptor.Identity]*components.Component)
	c.order = c.order[:0]
}

// byNode finds the cached component owning the given meta node.
func (c *componentCache) byNode(node scene.NodeID) (*components.Component, bool) {
	for _, comp := range c.entries {
		if comp.Node() == node {
			return comp, true
		}
	}
	return nil, false
}

// list returns the cached components in insertion order.
func (c *componentCache) list() []*components.Component {
	out := make([]*components.Component, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

func (c *componentCache) len() int {
	return len(c.entries)
}
