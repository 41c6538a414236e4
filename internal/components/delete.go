package components

import (
	"context"
	"fmt"

	"armature/internal/logging"
)

// DeleteGuide removes the guide layer and clears the guide flag. Returns
// false when there was no layer to remove.
func (c *Component) DeleteGuide(ctx context.Context) (bool, error) {
	return c.deleteLayer(ctx, NodeKindGuideLayer, map[string]any{AttrHasGuide: false})
}

// DeleteSkeleton removes the skeleton layer and clears the skeleton flag.
func (c *Component) DeleteSkeleton(ctx context.Context) (bool, error) {
	return c.deleteLayer(ctx, NodeKindSkeletonLayer, map[string]any{AttrHasSkeleton: false})
}

// DeleteRig removes the rig layer and clears the rig and polish flags, a
// polished result cannot outlive its rig.
func (c *Component) DeleteRig(ctx context.Context) (bool, error) {
	return c.deleteLayer(ctx, NodeKindRigLayer, map[string]any{
		AttrHasRig:      false,
		AttrHasPolished: false,
	})
}

func (c *Component) deleteLayer(ctx context.Context, kind string, flags map[string]any) (bool, error) {
	layer, err := c.layerNode(ctx, kind)
	if err != nil {
		return false, err
	}
	if err := c.setFlags(ctx, flags); err != nil {
		return false, err
	}
	if layer == nil {
		return false, nil
	}
	if err := c.store.DeleteNode(ctx, layer.ID); err != nil {
		return false, fmt.Errorf("delete %s of %s: %w", kind, c.TokenKey(), err)
	}
	c.log.Debug("layer deleted",
		logging.String(logging.FieldComponent, c.Name()),
		logging.String(logging.FieldSide, c.Side()),
		logging.String(logging.FieldKind, kind))
	return true, nil
}

// Delete removes the component from the scene: rig, skeleton and guide layers
// in reverse phase order, then the meta node itself. Callers re-parent child
// components before invoking this.
func (c *Component) Delete(ctx context.Context) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if _, err := c.DeleteRig(ctx); err != nil {
		return err
	}
	if _, err := c.DeleteSkeleton(ctx); err != nil {
		return err
	}
	if _, err := c.DeleteGuide(ctx); err != nil {
		return err
	}
	if err := c.store.DeleteNode(ctx, c.node); err != nil {
		return fmt.Errorf("delete component %s: %w", c.TokenKey(), err)
	}
	c.log.Info("component deleted",
		logging.String(logging.FieldComponent, c.Name()),
		logging.String(logging.FieldSide, c.Side()))
	return nil
}
