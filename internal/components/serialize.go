package components

import (
	"context"
	"fmt"

	"armature/internal/descriptor"
)

// SerializeFromScene reloads the persisted descriptor and stamps it with the
// identity attributes from the meta node, which are authoritative after
// renames and mirrors. The working descriptor is replaced; unsaved in-memory
// edits are discarded because the scene is the source of truth here.
func (c *Component) SerializeFromScene(ctx context.Context) (*descriptor.Descriptor, error) {
	raw, found, err := c.store.Attr(ctx, c.node, AttrDescriptor)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", c.TokenKey(), err)
	}
	if !found {
		return nil, fmt.Errorf("serialize %s: stored descriptor is missing", c.TokenKey())
	}
	desc, err := descriptor.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", c.TokenKey(), err)
	}

	name, err := c.store.AttrString(ctx, c.node, AttrName)
	if err != nil {
		return nil, err
	}
	side, err := c.store.AttrString(ctx, c.node, AttrSide)
	if err != nil {
		return nil, err
	}
	if name != "" {
		desc.Name = name
	}
	if side != "" {
		desc.Side = side
	}
	parentKey, err := c.store.AttrString(ctx, c.node, AttrParentComponent)
	if err != nil {
		return nil, err
	}
	if parentKey == "" {
		desc.SetParent(descriptor.Identity{})
	} else if parent, perr := descriptor.ParseIdentity(parentKey); perr == nil {
		desc.SetParent(parent)
	}

	c.desc = desc
	return desc.Copy(), nil
}
