package components

import (
	"context"
	"fmt"

	"armature/internal/descriptor"
	"armature/internal/logging"
	"armature/internal/naming"
	"armature/internal/scene"
)

// BuildGuide realizes the guide layer from the descriptor. Existing guide
// nodes are replaced, so the operation is idempotent. Building guides
// invalidates any previous skeleton and polish results, their flags are
// cleared before the build starts.
func (c *Component) BuildGuide(ctx context.Context) error {
	if err := c.ensureExists(ctx); err != nil {
		return err
	}
	if err := c.setFlags(ctx, map[string]any{
		AttrHasPolished: false,
		AttrHasSkeleton: false,
	}); err != nil {
		return err
	}

	c.log.Info("building guides",
		logging.String(logging.FieldComponent, c.Name()),
		logging.String(logging.FieldSide, c.Side()))

	layer, err := c.ensureLayer(ctx, NodeKindGuideLayer, "guide")
	if err != nil {
		return c.failGuide(ctx, err)
	}
	if err := c.applyGuideMetadata(ctx, layer); err != nil {
		return c.failGuide(ctx, err)
	}
	if setup, ok := c.kind.(GuideSetup); ok {
		if err := setup.SetupGuides(ctx, c); err != nil {
			return c.failGuide(ctx, err)
		}
	}
	if err := c.materializeGuides(ctx, layer); err != nil {
		return c.failGuide(ctx, err)
	}
	if err := c.SaveDescriptor(ctx); err != nil {
		return c.failGuide(ctx, err)
	}
	return c.setFlags(ctx, map[string]any{AttrHasGuide: true})
}

func (c *Component) failGuide(ctx context.Context, err error) error {
	if ferr := c.setFlags(ctx, map[string]any{AttrHasGuide: false}); ferr != nil {
		c.log.Warn("failed to reset guide flag", logging.Error(ferr))
	}
	return fmt.Errorf("build guide for %s: %w", c.TokenKey(), err)
}

// BuildSkeleton realizes the skeleton layer. When the descriptor carries no
// joints, one joint per guide is derived so every component skeletonizes
// without custom logic. Requires built guides.
func (c *Component) BuildSkeleton(ctx context.Context) error {
	if err := c.ensureExists(ctx); err != nil {
		return err
	}
	hasGuide, err := c.HasGuide(ctx)
	if err != nil {
		return err
	}
	if !hasGuide {
		return fmt.Errorf("build skeleton for %s: guides are not built", c.TokenKey())
	}
	if err := c.setFlags(ctx, map[string]any{AttrHasPolished: false}); err != nil {
		return err
	}

	c.log.Info("building skeleton",
		logging.String(logging.FieldComponent, c.Name()),
		logging.String(logging.FieldSide, c.Side()))

	layer, err := c.ensureLayer(ctx, NodeKindSkeletonLayer, "skeleton")
	if err != nil {
		return c.failSkeleton(ctx, err)
	}
	if len(c.desc.Skeleton.Joints) == 0 {
		c.deriveSkeleton()
	}
	if setup, ok := c.kind.(SkeletonSetup); ok {
		if err := setup.SetupSkeleton(ctx, c); err != nil {
			return c.failSkeleton(ctx, err)
		}
	}
	if err := c.materializeJoints(ctx, layer); err != nil {
		return c.failSkeleton(ctx, err)
	}
	if err := c.SaveDescriptor(ctx); err != nil {
		return c.failSkeleton(ctx, err)
	}
	return c.setFlags(ctx, map[string]any{AttrHasSkeleton: true})
}

func (c *Component) failSkeleton(ctx context.Context, err error) error {
	if ferr := c.setFlags(ctx, map[string]any{AttrHasSkeleton: false}); ferr != nil {
		c.log.Warn("failed to reset skeleton flag", logging.Error(ferr))
	}
	return fmt.Errorf("build skeleton for %s: %w", c.TokenKey(), err)
}

// BuildRig realizes the control layer. A component that already has a rig is
// skipped, the rig phase never rebuilds silently over live animation data.
// Requires a built skeleton.
func (c *Component) BuildRig(ctx context.Context) error {
	if err := c.ensureExists(ctx); err != nil {
		return err
	}
	hasRig, err := c.HasRig(ctx)
	if err != nil {
		return err
	}
	if hasRig {
		c.log.Info("component already has a rig, skipping build",
			logging.String(logging.FieldComponent, c.Name()),
			logging.String(logging.FieldSide, c.Side()))
		return nil
	}
	hasSkeleton, err := c.HasSkeleton(ctx)
	if err != nil {
		return err
	}
	if !hasSkeleton {
		return fmt.Errorf("build rig for %s: skeleton is not built", c.TokenKey())
	}
	if err := c.setFlags(ctx, map[string]any{AttrHasPolished: false}); err != nil {
		return err
	}

	c.log.Info("building rig",
		logging.String(logging.FieldComponent, c.Name()),
		logging.String(logging.FieldSide, c.Side()))

	layer, err := c.ensureLayer(ctx, NodeKindRigLayer, "rig")
	if err != nil {
		return fmt.Errorf("build rig for %s: %w", c.TokenKey(), err)
	}
	if setup, ok := c.kind.(RigSetup); ok {
		if err := setup.SetupRig(ctx, c); err != nil {
			return fmt.Errorf("build rig for %s: %w", c.TokenKey(), err)
		}
	}
	if err := c.materializeControls(ctx, layer); err != nil {
		return fmt.Errorf("build rig for %s: %w", c.TokenKey(), err)
	}
	if err := c.SaveDescriptor(ctx); err != nil {
		return fmt.Errorf("build rig for %s: %w", c.TokenKey(), err)
	}
	return c.setFlags(ctx, map[string]any{AttrHasRig: true})
}

// Polish finalizes the component: guides are hidden and the polish setup
// runs. Returns false without error when the component was already polished,
// the rig façade aggregates these results with a logical OR.
func (c *Component) Polish(ctx context.Context) (bool, error) {
	if err := c.ensureExists(ctx); err != nil {
		return false, err
	}
	polished, err := c.HasPolished(ctx)
	if err != nil {
		return false, err
	}
	if polished {
		return false, nil
	}
	hasRig, err := c.HasRig(ctx)
	if err != nil {
		return false, err
	}
	if !hasRig {
		return false, fmt.Errorf("polish %s: rig is not built", c.TokenKey())
	}

	c.log.Info("polishing component",
		logging.String(logging.FieldComponent, c.Name()),
		logging.String(logging.FieldSide, c.Side()))

	layer, err := c.GuideLayerNode(ctx)
	if err != nil {
		return false, err
	}
	if layer != nil {
		err := c.store.SetAttrs(ctx, layer.ID, map[string]any{
			AttrGuideVisibility:        false,
			AttrGuideControlVisibility: false,
		})
		if err != nil {
			return false, fmt.Errorf("polish %s: %w", c.TokenKey(), err)
		}
	}
	if setup, ok := c.kind.(PolishSetup); ok {
		if err := setup.SetupPolish(ctx, c); err != nil {
			return false, fmt.Errorf("polish %s: %w", c.TokenKey(), err)
		}
	}
	if err := c.setFlags(ctx, map[string]any{AttrHasPolished: true}); err != nil {
		return false, err
	}
	return true, nil
}

// SetGuideVisibility writes the pivot and control visibility onto the guide
// layer. Missing layers are ignored so rig-wide sweeps stay cheap.
func (c *Component) SetGuideVisibility(ctx context.Context, pivots, controls bool) error {
	layer, err := c.GuideLayerNode(ctx)
	if err != nil || layer == nil {
		return err
	}
	err = c.store.SetAttrs(ctx, layer.ID, map[string]any{
		AttrGuideVisibility:        pivots,
		AttrGuideControlVisibility: controls,
	})
	if err != nil {
		return fmt.Errorf("set guide visibility for %s: %w", c.TokenKey(), err)
	}
	return nil
}

func (c *Component) ensureExists(ctx context.Context) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("component %s does not exist", c.TokenKey())
	}
	return nil
}

// ensureLayer returns the component layer node of the given kind, creating it
// under the meta node on first use.
func (c *Component) ensureLayer(ctx context.Context, kind, token string) (scene.NodeID, error) {
	existing, err := c.layerNode(ctx, kind)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}
	name, err := c.nodeName(naming.RuleComponentLayer, naming.Fields{"layer": token})
	if err != nil {
		return "", err
	}
	node, err := c.store.CreateChildNode(ctx, kind, name, c.node)
	if err != nil {
		return "", fmt.Errorf("create %s layer for %s: %w", token, c.TokenKey(), err)
	}
	return node.ID, nil
}

// applyGuideMetadata writes the descriptor's guide layer metadata onto the
// layer node, with the engine defaults for the two visibility switches.
func (c *Component) applyGuideMetadata(ctx context.Context, layer scene.NodeID) error {
	attrs := map[string]any{
		AttrGuideVisibility:        true,
		AttrGuideControlVisibility: false,
	}
	for _, setting := range c.desc.GuideLayer.Metadata {
		attrs[setting.Name] = setting.Value
	}
	for _, setting := range c.desc.GuideLayer.Settings {
		attrs[setting.Name] = setting.Value
	}
	return c.store.SetAttrs(ctx, layer, attrs)
}

func (c *Component) clearLayer(ctx context.Context, layer scene.NodeID) error {
	children, err := c.store.Children(ctx, layer)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := c.store.DeleteNode(ctx, child.ID); err != nil {
			return err
		}
	}
	return nil
}

// materializeGuides rebuilds the guide DAG nodes from the descriptor. Nodes
// are created flat first and parented in a second pass, so guide order inside
// the descriptor does not matter.
func (c *Component) materializeGuides(ctx context.Context, layer scene.NodeID) error {
	if err := c.clearLayer(ctx, layer); err != nil {
		return err
	}
	created := make(map[string]scene.NodeID, len(c.desc.GuideLayer.Guides))
	for i := range c.desc.GuideLayer.Guides {
		guide := &c.desc.GuideLayer.Guides[i]
		if guide.ID == "" {
			return fmt.Errorf("guide %d has no id", i)
		}
		name, err := c.nodeName(naming.RuleGuide, naming.Fields{"id": guide.ID})
		if err != nil {
			return err
		}
		node, err := c.store.CreateChildNode(ctx, NodeKindGuide, name, layer)
		if err != nil {
			return err
		}
		attrs := map[string]any{
			AttrID:         guide.ID,
			AttrShape:      stringOr(guide.Shape, DefaultGuideShape),
			AttrPivotColor: colorOr(guide.PivotColor, DefaultGuidePivotColor),
			AttrTranslate:  guide.Translate,
			AttrRotate:     rotationOr(guide.Rotate),
			AttrScale:      scaleOr(guide.Scale),
		}
		if err := c.store.SetAttrs(ctx, node.ID, attrs); err != nil {
			return err
		}
		created[guide.ID] = node.ID
	}
	for i := range c.desc.GuideLayer.Guides {
		guide := &c.desc.GuideLayer.Guides[i]
		if guide.Parent == "" {
			continue
		}
		parent, ok := created[guide.Parent]
		if !ok {
			// Parent outside this component, the guide stays under the layer.
			continue
		}
		if err := c.store.SetParent(ctx, created[guide.ID], parent); err != nil {
			return err
		}
	}
	return nil
}

// deriveSkeleton fills the descriptor skeleton with one joint per guide,
// preserving the guide hierarchy and transforms.
func (c *Component) deriveSkeleton() {
	joints := make([]descriptor.Joint, 0, len(c.desc.GuideLayer.Guides))
	for _, guide := range c.desc.GuideLayer.Guides {
		joints = append(joints, descriptor.Joint{
			ID:        guide.ID,
			Parent:    guide.Parent,
			Guide:     guide.ID,
			Translate: guide.Translate,
			Rotate:    guide.Rotate,
		})
	}
	c.desc.Skeleton.Joints = joints
}

func (c *Component) materializeJoints(ctx context.Context, layer scene.NodeID) error {
	if err := c.clearLayer(ctx, layer); err != nil {
		return err
	}
	created := make(map[string]scene.NodeID, len(c.desc.Skeleton.Joints))
	for i := range c.desc.Skeleton.Joints {
		joint := &c.desc.Skeleton.Joints[i]
		if joint.ID == "" {
			return fmt.Errorf("joint %d has no id", i)
		}
		name, err := c.nodeName(naming.RuleJoint, naming.Fields{"id": joint.ID})
		if err != nil {
			return err
		}
		node, err := c.store.CreateChildNode(ctx, NodeKindJoint, name, layer)
		if err != nil {
			return err
		}
		attrs := map[string]any{
			AttrID:        joint.ID,
			AttrGuideRef:  joint.Guide,
			AttrTranslate: joint.Translate,
			AttrRotate:    rotationOr(joint.Rotate),
		}
		if err := c.store.SetAttrs(ctx, node.ID, attrs); err != nil {
			return err
		}
		created[joint.ID] = node.ID
	}
	for i := range c.desc.Skeleton.Joints {
		joint := &c.desc.Skeleton.Joints[i]
		if joint.Parent == "" {
			continue
		}
		parent, ok := created[joint.Parent]
		if !ok {
			continue
		}
		if err := c.store.SetParent(ctx, created[joint.ID], parent); err != nil {
			return err
		}
	}
	return nil
}

// materializeControls creates one control per guide, mirroring the guide
// hierarchy in the rig layer.
func (c *Component) materializeControls(ctx context.Context, layer scene.NodeID) error {
	if err := c.clearLayer(ctx, layer); err != nil {
		return err
	}
	created := make(map[string]scene.NodeID, len(c.desc.GuideLayer.Guides))
	for i := range c.desc.GuideLayer.Guides {
		guide := &c.desc.GuideLayer.Guides[i]
		name, err := c.nodeName(naming.RuleControl, naming.Fields{"id": guide.ID})
		if err != nil {
			return err
		}
		node, err := c.store.CreateChildNode(ctx, NodeKindControl, name, layer)
		if err != nil {
			return err
		}
		attrs := map[string]any{
			AttrID:        guide.ID,
			AttrShape:     stringOr(guide.Shape, DefaultGuideShape),
			AttrTranslate: guide.Translate,
			AttrRotate:    rotationOr(guide.Rotate),
		}
		if err := c.store.SetAttrs(ctx, node.ID, attrs); err != nil {
			return err
		}
		created[guide.ID] = node.ID
	}
	for i := range c.desc.GuideLayer.Guides {
		guide := &c.desc.GuideLayer.Guides[i]
		if guide.Parent == "" {
			continue
		}
		parent, ok := created[guide.Parent]
		if !ok {
			continue
		}
		if err := c.store.SetParent(ctx, created[guide.ID], parent); err != nil {
			return err
		}
	}
	return nil
}

func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func colorOr(value, fallback [3]float64) [3]float64 {
	if value == ([3]float64{}) {
		return fallback
	}
	return value
}

func scaleOr(value [3]float64) [3]float64 {
	if value == ([3]float64{}) {
		return [3]float64{1, 1, 1}
	}
	return value
}

func rotationOr(value [4]float64) [4]float64 {
	if value == ([4]float64{}) {
		return [4]float64{0, 0, 0, 1}
	}
	return value
}
