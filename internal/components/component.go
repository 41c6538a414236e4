package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"armature/internal/descriptor"
	"armature/internal/logging"
	"armature/internal/naming"
	"armature/internal/scene"
)

// Component binds a descriptor to its persisted meta node and realizes the
// build phases against the scene store. Instances are created through Create
// for new components and Attach for persisted ones; the rig façade guarantees
// at most one live instance per identity.
type Component struct {
	store  *scene.Store
	preset *naming.Preset
	log    *slog.Logger
	kind   Kind
	node   scene.NodeID
	desc   *descriptor.Descriptor
}

// CreateOptions configures Create.
type CreateOptions struct {
	Store      *scene.Store
	Preset     *naming.Preset
	Logger     *slog.Logger
	Layer      scene.NodeID // components layer the meta node is created under
	Kind       Kind
	Descriptor descriptor.Descriptor
}

// Create persists a new component under the components layer and returns its
// wrapper. The descriptor is stored as-is; callers are responsible for
// identity uniqueness.
func Create(ctx context.Context, opts CreateOptions) (*Component, error) {
	desc := opts.Descriptor.Copy()
	desc.Type = opts.Kind.Type()
	if desc.Version == "" {
		desc.Version = descriptor.Version
	}
	if desc.Name == "" || desc.Side == "" {
		return nil, fmt.Errorf("create component: descriptor requires name and side, got %q/%q", desc.Name, desc.Side)
	}

	comp := &Component{
		store:  opts.Store,
		preset: opts.Preset,
		log:    opts.Logger,
		kind:   opts.Kind,
		desc:   desc,
	}
	if comp.log == nil {
		comp.log = logging.NewNop()
	}

	metaName, err := comp.nodeName(naming.RuleComponentMeta, nil)
	if err != nil {
		return nil, fmt.Errorf("create component %s: %w", desc.Identity(), err)
	}
	node, err := opts.Store.CreateChildNode(ctx, NodeKindComponent, metaName, opts.Layer)
	if err != nil {
		return nil, fmt.Errorf("create component %s: %w", desc.Identity(), err)
	}
	comp.node = node.ID

	raw, err := desc.Marshal()
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{
		AttrIsComponent:   true,
		AttrName:          desc.Name,
		AttrSide:          desc.Side,
		AttrComponentType: desc.Type,
		AttrVersion:       desc.Version,
		AttrDescriptor:    json.RawMessage(raw),
		AttrHasGuide:      false,
		AttrHasSkeleton:   false,
		AttrHasRig:        false,
		AttrHasPolished:   false,
	}
	if parent, ok := desc.ParentIdentity(); ok {
		attrs[AttrParentComponent] = parent.String()
	}
	if err := opts.Store.SetAttrs(ctx, node.ID, attrs); err != nil {
		return nil, fmt.Errorf("create component %s: %w", desc.Identity(), err)
	}

	comp.log.Debug("component created",
		logging.String(logging.FieldComponent, desc.Name),
		logging.String(logging.FieldSide, desc.Side),
		logging.String(logging.FieldNode, string(node.ID)))
	return comp, nil
}

// AttachOptions configures Attach.
type AttachOptions struct {
	Store  *scene.Store
	Preset *naming.Preset
	Logger *slog.Logger
	Node   scene.NodeID
}

// Attach wraps an existing component meta node. It fails when the node lacks
// a registered component type or a stored descriptor.
func Attach(ctx context.Context, opts AttachOptions) (*Component, error) {
	tag, err := opts.Store.AttrString(ctx, opts.Node, AttrComponentType)
	if err != nil {
		return nil, fmt.Errorf("attach component %s: %w", opts.Node, err)
	}
	if tag == "" {
		return nil, fmt.Errorf("attach component %s: node has no component type", opts.Node)
	}
	kind, ok := LookupKind(tag)
	if !ok {
		return nil, fmt.Errorf("attach component %s: component type %q is not registered", opts.Node, tag)
	}

	raw, found, err := opts.Store.Attr(ctx, opts.Node, AttrDescriptor)
	if err != nil {
		return nil, fmt.Errorf("attach component %s: %w", opts.Node, err)
	}
	if !found {
		return nil, fmt.Errorf("attach component %s: stored descriptor is missing", opts.Node)
	}
	desc, err := descriptor.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("attach component %s: %w", opts.Node, err)
	}

	comp := &Component{
		store:  opts.Store,
		preset: opts.Preset,
		log:    opts.Logger,
		kind:   kind,
		node:   opts.Node,
		desc:   desc,
	}
	if comp.log == nil {
		comp.log = logging.NewNop()
	}
	return comp, nil
}

// Node returns the component's meta node handle.
func (c *Component) Node() scene.NodeID { return c.node }

// Kind returns the component's type definition.
func (c *Component) Kind() Kind { return c.kind }

// TypeName returns the registered type tag.
func (c *Component) TypeName() string { return c.kind.Type() }

// Name returns the component name half of the identity.
func (c *Component) Name() string { return c.desc.Name }

// Side returns the side half of the identity.
func (c *Component) Side() string { return c.desc.Side }

// Identity returns the (name, side) pair.
func (c *Component) Identity() descriptor.Identity { return c.desc.Identity() }

// TokenKey returns the "name:side" cache key for this component.
func (c *Component) TokenKey() string { return c.desc.Identity().String() }

// Descriptor exposes the mutable working descriptor. Callers persist edits
// with SaveDescriptor.
func (c *Component) Descriptor() *descriptor.Descriptor { return c.desc }

// Exists reports whether the meta node is still present in the scene.
func (c *Component) Exists(ctx context.Context) (bool, error) {
	return c.store.NodeExists(ctx, c.node)
}

// SaveDescriptor persists the working descriptor and the identity attributes
// derived from it.
func (c *Component) SaveDescriptor(ctx context.Context) error {
	raw, err := c.desc.Marshal()
	if err != nil {
		return err
	}
	attrs := map[string]any{
		AttrName:          c.desc.Name,
		AttrSide:          c.desc.Side,
		AttrComponentType: c.desc.Type,
		AttrVersion:       c.desc.Version,
		AttrDescriptor:    json.RawMessage(raw),
	}
	if parent, ok := c.desc.ParentIdentity(); ok {
		attrs[AttrParentComponent] = parent.String()
	} else {
		attrs[AttrParentComponent] = ""
	}
	if err := c.store.SetAttrs(ctx, c.node, attrs); err != nil {
		return fmt.Errorf("save descriptor for %s: %w", c.TokenKey(), err)
	}
	return nil
}

// Rename changes the component name, persists the descriptor and renames the
// owned scene nodes through the naming preset.
func (c *Component) Rename(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename component %s: empty name", c.TokenKey())
	}
	c.desc.Name = name
	if err := c.SaveDescriptor(ctx); err != nil {
		return err
	}
	return c.ApplyNaming(ctx)
}

// SetSide changes the component side, persists the descriptor and renames the
// owned scene nodes through the naming preset.
func (c *Component) SetSide(ctx context.Context, side string) error {
	side = strings.TrimSpace(side)
	if side == "" {
		return fmt.Errorf("set side for %s: empty side", c.TokenKey())
	}
	c.desc.Side = side
	if err := c.SaveDescriptor(ctx); err != nil {
		return err
	}
	return c.ApplyNaming(ctx)
}

// ParentIdentity returns the declared parent identity, when any.
func (c *Component) ParentIdentity() (descriptor.Identity, bool) {
	return c.desc.ParentIdentity()
}

// SetParent declares parent as this component's parent and persists it.
func (c *Component) SetParent(ctx context.Context, parent *Component) error {
	c.desc.SetParent(parent.Identity())
	return c.SaveDescriptor(ctx)
}

// SetParentIdentity declares a parent by identity without requiring a live
// instance, used by template rebuilds where the parent may not exist yet.
func (c *Component) SetParentIdentity(ctx context.Context, parent descriptor.Identity) error {
	c.desc.SetParent(parent)
	return c.SaveDescriptor(ctx)
}

// RemoveParent clears the parent declaration.
func (c *Component) RemoveParent(ctx context.Context) error {
	c.desc.SetParent(descriptor.Identity{})
	return c.SaveDescriptor(ctx)
}

// RemoveAllParents clears the parent declaration together with the guide
// connections that referenced it. Mirror uses this to fully detach components
// that move sides without being duplicated.
func (c *Component) RemoveAllParents(ctx context.Context) error {
	c.desc.SetParent(descriptor.Identity{})
	c.desc.Connections = descriptor.Connections{}
	return c.SaveDescriptor(ctx)
}

// ApplyNaming renames the meta node and every owned layer and DAG node to
// match the current identity under the naming preset.
func (c *Component) ApplyNaming(ctx context.Context) error {
	metaName, err := c.nodeName(naming.RuleComponentMeta, nil)
	if err != nil {
		return err
	}
	if err := c.store.RenameNode(ctx, c.node, metaName); err != nil {
		return fmt.Errorf("apply naming for %s: %w", c.TokenKey(), err)
	}

	layers := []struct {
		kind  string
		layer string
		child string // rule for the layer's DAG children
	}{
		{NodeKindGuideLayer, "guide", naming.RuleGuide},
		{NodeKindSkeletonLayer, "skeleton", naming.RuleJoint},
		{NodeKindRigLayer, "rig", naming.RuleControl},
	}
	for _, l := range layers {
		layer, err := c.layerNode(ctx, l.kind)
		if err != nil {
			return err
		}
		if layer == nil {
			continue
		}
		layerName, err := c.nodeName(naming.RuleComponentLayer, naming.Fields{"layer": l.layer})
		if err != nil {
			return err
		}
		if err := c.store.RenameNode(ctx, layer.ID, layerName); err != nil {
			return fmt.Errorf("apply naming for %s: %w", c.TokenKey(), err)
		}
		children, err := c.store.Children(ctx, layer.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			id, err := c.store.AttrString(ctx, child.ID, AttrID)
			if err != nil {
				return err
			}
			if id == "" {
				continue
			}
			childName, err := c.nodeName(l.child, naming.Fields{"id": id})
			if err != nil {
				return err
			}
			if err := c.store.RenameNode(ctx, child.ID, childName); err != nil {
				return fmt.Errorf("apply naming for %s: %w", c.TokenKey(), err)
			}
		}
	}
	return nil
}

// nodeName resolves a naming rule with the component identity fields plus any
// extra fields the rule needs.
func (c *Component) nodeName(rule string, extra naming.Fields) (string, error) {
	fields := naming.Fields{
		"component": c.desc.Name,
		"side":      c.desc.Side,
		"type":      c.desc.Type,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return c.preset.Resolve(rule, fields)
}

// layerNode returns the component's layer node of the given kind, or nil when
// the layer has not been built.
func (c *Component) layerNode(ctx context.Context, kind string) (*scene.Node, error) {
	layers, err := c.store.ChildrenByKind(ctx, c.node, kind)
	if err != nil {
		return nil, fmt.Errorf("layer %s of %s: %w", kind, c.TokenKey(), err)
	}
	if len(layers) == 0 {
		return nil, nil
	}
	return layers[0], nil
}

// GuideLayerNode returns the guide layer node, or nil before the guide phase.
func (c *Component) GuideLayerNode(ctx context.Context) (*scene.Node, error) {
	return c.layerNode(ctx, NodeKindGuideLayer)
}

// SkeletonLayerNode returns the skeleton layer node, or nil before the
// skeleton phase.
func (c *Component) SkeletonLayerNode(ctx context.Context) (*scene.Node, error) {
	return c.layerNode(ctx, NodeKindSkeletonLayer)
}

// RigLayerNode returns the rig layer node, or nil before the rig phase.
func (c *Component) RigLayerNode(ctx context.Context) (*scene.Node, error) {
	return c.layerNode(ctx, NodeKindRigLayer)
}

// HasGuide reports whether the guide phase completed.
func (c *Component) HasGuide(ctx context.Context) (bool, error) {
	return c.flag(ctx, AttrHasGuide)
}

// HasSkeleton reports whether the skeleton phase completed.
func (c *Component) HasSkeleton(ctx context.Context) (bool, error) {
	return c.flag(ctx, AttrHasSkeleton)
}

// HasRig reports whether the rig phase completed.
func (c *Component) HasRig(ctx context.Context) (bool, error) {
	return c.flag(ctx, AttrHasRig)
}

// HasPolished reports whether the polish phase completed.
func (c *Component) HasPolished(ctx context.Context) (bool, error) {
	return c.flag(ctx, AttrHasPolished)
}

// HasGuideControls reports whether the built guides currently show their
// controls, the half-step between the guide and skeleton states.
func (c *Component) HasGuideControls(ctx context.Context) (bool, error) {
	layer, err := c.GuideLayerNode(ctx)
	if err != nil || layer == nil {
		return false, err
	}
	return c.store.AttrBool(ctx, layer.ID, AttrGuideControlVisibility)
}

func (c *Component) flag(ctx context.Context, key string) (bool, error) {
	value, err := c.store.AttrBool(ctx, c.node, key)
	if err != nil {
		return false, fmt.Errorf("read %s of %s: %w", key, c.TokenKey(), err)
	}
	return value, nil
}

func (c *Component) setFlags(ctx context.Context, flags map[string]any) error {
	if err := c.store.SetAttrs(ctx, c.node, flags); err != nil {
		return fmt.Errorf("update flags of %s: %w", c.TokenKey(), err)
	}
	return nil
}
