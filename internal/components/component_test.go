package components_test

import (
	"context"
	"path/filepath"
	"testing"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/logging"
	"armature/internal/naming"
	"armature/internal/scene"
)

// newComponent opens a fresh scene with a rig skeleton of nodes and creates a
// single component of the given kind in it.
func newComponent(t *testing.T, tag, name, side string) (*scene.Store, *components.Component) {
	t.Helper()
	ctx := context.Background()

	store, err := scene.OpenPath(filepath.Join(t.TempDir(), "scene.db"))
	if err != nil {
		t.Fatalf("OpenPath returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	root, err := store.CreateNode(ctx, components.NodeKindRigRoot, "rig_root")
	if err != nil {
		t.Fatalf("create rig root: %v", err)
	}
	layer, err := store.CreateChildNode(ctx, components.NodeKindComponentsLayer, "rig_components_hrc", root.ID)
	if err != nil {
		t.Fatalf("create components layer: %v", err)
	}

	kind, ok := components.LookupKind(tag)
	if !ok {
		t.Fatalf("kind %q is not registered", tag)
	}
	desc := kind.NewDescriptor()
	desc.Name = name
	desc.Side = side

	comp, err := components.Create(ctx, components.CreateOptions{
		Store:      store,
		Preset:     naming.Default(),
		Logger:     logging.NewNop(),
		Layer:      layer.ID,
		Kind:       kind,
		Descriptor: desc,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return store, comp
}

func TestCreateWritesMetaNode(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "arm", "L")

	if comp.TokenKey() != "arm:L" {
		t.Fatalf("TokenKey = %q, want arm:L", comp.TokenKey())
	}
	node, err := store.Node(ctx, comp.Node())
	if err != nil {
		t.Fatalf("Node returned error: %v", err)
	}
	if node == nil {
		t.Fatal("meta node not persisted")
	}
	if node.Name != "arm_L_meta" {
		t.Errorf("meta node name = %q, want arm_L_meta", node.Name)
	}
	if node.Kind != components.NodeKindComponent {
		t.Errorf("meta node kind = %q, want %q", node.Kind, components.NodeKindComponent)
	}

	tag, err := store.AttrString(ctx, comp.Node(), components.AttrComponentType)
	if err != nil {
		t.Fatalf("AttrString returned error: %v", err)
	}
	if tag != "fkchain" {
		t.Errorf("componentType attr = %q, want fkchain", tag)
	}
	for _, key := range []string{
		components.AttrHasGuide,
		components.AttrHasSkeleton,
		components.AttrHasRig,
		components.AttrHasPolished,
	} {
		value, err := store.AttrBool(ctx, comp.Node(), key)
		if err != nil {
			t.Fatalf("AttrBool(%s) returned error: %v", key, err)
		}
		if value {
			t.Errorf("new component reports %s = true", key)
		}
	}
}

func TestAttachRestoresDescriptor(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "leg", "leg", "L")

	restored, err := components.Attach(ctx, components.AttachOptions{
		Store:  store,
		Preset: naming.Default(),
		Logger: logging.NewNop(),
		Node:   comp.Node(),
	})
	if err != nil {
		t.Fatalf("Attach returned error: %v", err)
	}
	if restored.TokenKey() != "leg:L" {
		t.Errorf("TokenKey = %q, want leg:L", restored.TokenKey())
	}
	if restored.TypeName() != "leg" {
		t.Errorf("TypeName = %q, want leg", restored.TypeName())
	}
	if len(restored.Descriptor().GuideLayer.Guides) != 4 {
		t.Errorf("restored guide count = %d, want 4", len(restored.Descriptor().GuideLayer.Guides))
	}
}

func TestAttachRejectsForeignNode(t *testing.T) {
	ctx := context.Background()
	store, _ := newComponent(t, "root", "root", "M")

	plain, err := store.CreateNode(ctx, "transform", "stray")
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	_, err = components.Attach(ctx, components.AttachOptions{
		Store:  store,
		Preset: naming.Default(),
		Logger: logging.NewNop(),
		Node:   plain.ID,
	})
	if err == nil {
		t.Fatal("Attach accepted a node without component attributes")
	}
}

func TestRenameAppliesNaming(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "arm", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.Rename(ctx, "upperarm"); err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	if comp.TokenKey() != "upperarm:L" {
		t.Fatalf("TokenKey = %q, want upperarm:L", comp.TokenKey())
	}

	meta, err := store.Node(ctx, comp.Node())
	if err != nil {
		t.Fatalf("Node returned error: %v", err)
	}
	if meta.Name != "upperarm_L_meta" {
		t.Errorf("meta name = %q, want upperarm_L_meta", meta.Name)
	}

	layer, err := comp.GuideLayerNode(ctx)
	if err != nil {
		t.Fatalf("GuideLayerNode returned error: %v", err)
	}
	if layer == nil {
		t.Fatal("guide layer missing after rename")
	}
	if layer.Name != "upperarm_L_guide_hrc" {
		t.Errorf("guide layer name = %q, want upperarm_L_guide_hrc", layer.Name)
	}
	guides, err := store.ChildrenByKind(ctx, layer.ID, components.NodeKindGuide)
	if err != nil {
		t.Fatalf("ChildrenByKind returned error: %v", err)
	}
	if len(guides) == 0 {
		t.Fatal("no guide nodes after rename")
	}
	if guides[0].Name != "upperarm_L_link01_guide" {
		t.Errorf("guide name = %q, want upperarm_L_link01_guide", guides[0].Name)
	}
}

func TestSetSide(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "leg", "leg", "L")

	if err := comp.SetSide(ctx, "R"); err != nil {
		t.Fatalf("SetSide returned error: %v", err)
	}
	if comp.Side() != "R" {
		t.Fatalf("Side = %q, want R", comp.Side())
	}
	side, err := store.AttrString(ctx, comp.Node(), components.AttrSide)
	if err != nil {
		t.Fatalf("AttrString returned error: %v", err)
	}
	if side != "R" {
		t.Errorf("side attr = %q, want R", side)
	}
}

func TestParentDeclaration(t *testing.T) {
	ctx := context.Background()
	store, parent := newComponent(t, "root", "root", "M")

	kind, _ := components.LookupKind("leg")
	desc := kind.NewDescriptor()
	desc.Name = "leg"
	desc.Side = "L"
	layerNode, err := store.Parent(ctx, parent.Node())
	if err != nil {
		t.Fatalf("Parent returned error: %v", err)
	}
	child, err := components.Create(ctx, components.CreateOptions{
		Store:      store,
		Preset:     naming.Default(),
		Logger:     logging.NewNop(),
		Layer:      layerNode.ID,
		Kind:       kind,
		Descriptor: desc,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := child.SetParent(ctx, parent); err != nil {
		t.Fatalf("SetParent returned error: %v", err)
	}
	got, ok := child.ParentIdentity()
	if !ok || got.String() != "root:M" {
		t.Fatalf("ParentIdentity = %v/%v, want root:M", got, ok)
	}
	stored, err := store.AttrString(ctx, child.Node(), components.AttrParentComponent)
	if err != nil {
		t.Fatalf("AttrString returned error: %v", err)
	}
	if stored != "root:M" {
		t.Errorf("parentComponent attr = %q, want root:M", stored)
	}

	if err := child.RemoveParent(ctx); err != nil {
		t.Fatalf("RemoveParent returned error: %v", err)
	}
	if _, ok := child.ParentIdentity(); ok {
		t.Fatal("parent still declared after RemoveParent")
	}
}

func TestPinAndUnpin(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "leg", "leg", "L")

	ref, err := descriptor.ParseGuideRef("root:M:root")
	if err != nil {
		t.Fatalf("ParseGuideRef returned error: %v", err)
	}
	comp.Descriptor().Connections = descriptor.Connections{
		ID: "root",
		Constraints: []descriptor.Constraint{{
			Type:    "matrix",
			Targets: []descriptor.Target{{Label: "parent", Ref: ref}},
		}},
	}
	if err := comp.SaveDescriptor(ctx); err != nil {
		t.Fatalf("SaveDescriptor returned error: %v", err)
	}

	changed, err := comp.Pin(ctx)
	if err != nil {
		t.Fatalf("Pin returned error: %v", err)
	}
	if !changed {
		t.Fatal("Pin reported no change on first call")
	}
	if !comp.Descriptor().Connections.IsZero() {
		t.Fatal("connections not cleared while pinned")
	}
	if _, found, _ := store.Attr(ctx, comp.Node(), components.AttrPinnedConstraints); !found {
		t.Fatal("pinned constraint snapshot missing")
	}

	changed, err = comp.Pin(ctx)
	if err != nil {
		t.Fatalf("second Pin returned error: %v", err)
	}
	if changed {
		t.Fatal("second Pin reported a change")
	}

	changed, err = comp.Unpin(ctx)
	if err != nil {
		t.Fatalf("Unpin returned error: %v", err)
	}
	if !changed {
		t.Fatal("Unpin reported no change")
	}
	conns := comp.Descriptor().Connections
	if len(conns.Constraints) != 1 || len(conns.Constraints[0].Targets) != 1 {
		t.Fatalf("connections not restored: %+v", conns)
	}
	if got := conns.Constraints[0].Targets[0].Ref.String(); got != "root:M:root" {
		t.Errorf("restored target = %q, want root:M:root", got)
	}
	if _, found, _ := store.Attr(ctx, comp.Node(), components.AttrPinnedConstraints); found {
		t.Error("pinned snapshot still present after Unpin")
	}

	changed, err = comp.Unpin(ctx)
	if err != nil {
		t.Fatalf("second Unpin returned error: %v", err)
	}
	if changed {
		t.Fatal("second Unpin reported a change")
	}
}

func TestSerializeFromSceneStampsIdentity(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "arm", "L")

	// Simulate an attribute-level rename the working descriptor has not seen.
	if err := store.SetAttr(ctx, comp.Node(), components.AttrName, "forearm"); err != nil {
		t.Fatalf("SetAttr returned error: %v", err)
	}
	desc, err := comp.SerializeFromScene(ctx)
	if err != nil {
		t.Fatalf("SerializeFromScene returned error: %v", err)
	}
	if desc.Name != "forearm" {
		t.Errorf("serialized name = %q, want forearm", desc.Name)
	}
	if comp.Name() != "forearm" {
		t.Errorf("working descriptor name = %q, want forearm", comp.Name())
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "arm", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.Delete(ctx); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	exists, err := store.NodeExists(ctx, comp.Node())
	if err != nil {
		t.Fatalf("NodeExists returned error: %v", err)
	}
	if exists {
		t.Fatal("meta node still present after Delete")
	}
	// Deleting a deleted component is a no-op.
	if err := comp.Delete(ctx); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
}
