package components

import (
	"context"
	"encoding/json"
	"fmt"

	"armature/internal/descriptor"
)

// IsPinned reports whether the component's connections are currently pinned.
func (c *Component) IsPinned(ctx context.Context) (bool, error) {
	return c.flag(ctx, AttrPinned)
}

// Pin snapshots the guide connections onto the meta node and disconnects the
// live ones, so a parent can be rebuilt underneath without dragging this
// component along. Returns false when the component was already pinned.
func (c *Component) Pin(ctx context.Context) (bool, error) {
	pinned, err := c.IsPinned(ctx)
	if err != nil {
		return false, err
	}
	if pinned {
		return false, nil
	}

	snapshot, err := json.Marshal(c.desc.Connections)
	if err != nil {
		return false, fmt.Errorf("pin %s: %w", c.TokenKey(), err)
	}
	err = c.store.SetAttrs(ctx, c.node, map[string]any{
		AttrPinned:            true,
		AttrPinnedConstraints: json.RawMessage(snapshot),
	})
	if err != nil {
		return false, fmt.Errorf("pin %s: %w", c.TokenKey(), err)
	}
	c.desc.Connections = descriptor.Connections{}
	if err := c.SaveDescriptor(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Unpin restores the pinned connection snapshot into the descriptor and
// clears the pin state. Returns false when the component was not pinned.
func (c *Component) Unpin(ctx context.Context) (bool, error) {
	pinned, err := c.IsPinned(ctx)
	if err != nil {
		return false, err
	}
	if !pinned {
		return false, nil
	}

	raw, found, err := c.store.Attr(ctx, c.node, AttrPinnedConstraints)
	if err != nil {
		return false, fmt.Errorf("unpin %s: %w", c.TokenKey(), err)
	}
	if found {
		var restored descriptor.Connections
		if err := json.Unmarshal(raw, &restored); err != nil {
			return false, fmt.Errorf("unpin %s: %w", c.TokenKey(), err)
		}
		c.desc.Connections = restored
	}
	if err := c.store.DeleteAttr(ctx, c.node, AttrPinnedConstraints); err != nil {
		return false, fmt.Errorf("unpin %s: %w", c.TokenKey(), err)
	}
	if err := c.store.SetAttr(ctx, c.node, AttrPinned, false); err != nil {
		return false, fmt.Errorf("unpin %s: %w", c.TokenKey(), err)
	}
	if err := c.SaveDescriptor(ctx); err != nil {
		return false, err
	}
	return true, nil
}
