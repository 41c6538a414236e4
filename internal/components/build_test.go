package components_test

import (
	"context"
	"testing"

	"armature/internal/components"
	"armature/internal/scene"
)

// nodesUnder collects every node of the given kind in the subtree below root.
// Guides, joints and controls mirror the descriptor hierarchy, so they are
// not all direct children of their layer.
func nodesUnder(t *testing.T, ctx context.Context, store *scene.Store, root scene.NodeID, kind string) []*scene.Node {
	t.Helper()
	var out []*scene.Node
	queue := []scene.NodeID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := store.Children(ctx, id)
		if err != nil {
			t.Fatalf("Children returned error: %v", err)
		}
		for _, child := range children {
			if child.Kind == kind {
				out = append(out, child)
			}
			queue = append(queue, child.ID)
		}
	}
	return out
}

func guideNodes(t *testing.T, ctx context.Context, store *scene.Store, comp *components.Component) []*scene.Node {
	t.Helper()
	layer, err := comp.GuideLayerNode(ctx)
	if err != nil {
		t.Fatalf("GuideLayerNode returned error: %v", err)
	}
	if layer == nil {
		t.Fatal("guide layer not built")
	}
	return nodesUnder(t, ctx, store, layer.ID, components.NodeKindGuide)
}

func findByAttrID(t *testing.T, ctx context.Context, store *scene.Store, nodes []*scene.Node, id string) *scene.Node {
	t.Helper()
	for _, node := range nodes {
		value, err := store.AttrString(ctx, node.ID, components.AttrID)
		if err != nil {
			t.Fatalf("AttrString returned error: %v", err)
		}
		if value == id {
			return node
		}
	}
	t.Fatalf("no node with id %q", id)
	return nil
}

func TestBuildGuideCreatesNodes(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "arm", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	hasGuide, err := comp.HasGuide(ctx)
	if err != nil {
		t.Fatalf("HasGuide returned error: %v", err)
	}
	if !hasGuide {
		t.Fatal("HasGuide = false after BuildGuide")
	}

	guides := guideNodes(t, ctx, store, comp)
	if len(guides) != 3 {
		t.Fatalf("guide node count = %d, want 3", len(guides))
	}

	// Chain links are parented to their predecessor, not the layer.
	link02 := findByAttrID(t, ctx, store, guides, "link02")
	parent, err := store.Parent(ctx, link02.ID)
	if err != nil {
		t.Fatalf("Parent returned error: %v", err)
	}
	if parent == nil || parent.Name != "arm_L_link01_guide" {
		t.Fatalf("link02 parent = %+v, want arm_L_link01_guide", parent)
	}
}

func TestBuildGuideIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "arm", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("first BuildGuide returned error: %v", err)
	}
	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("second BuildGuide returned error: %v", err)
	}
	guides := guideNodes(t, ctx, store, comp)
	if len(guides) != 3 {
		t.Fatalf("guide node count after rebuild = %d, want 3", len(guides))
	}
}

func TestBuildGuideClearsDownstreamFlags(t *testing.T) {
	ctx := context.Background()
	_, comp := newComponent(t, "leg", "leg", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.BuildSkeleton(ctx); err != nil {
		t.Fatalf("BuildSkeleton returned error: %v", err)
	}
	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("guide rebuild returned error: %v", err)
	}
	hasSkeleton, err := comp.HasSkeleton(ctx)
	if err != nil {
		t.Fatalf("HasSkeleton returned error: %v", err)
	}
	if hasSkeleton {
		t.Fatal("HasSkeleton survived a guide rebuild")
	}
}

func TestFkchainHonorsLinkCountSetting(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "fkchain", "tail", "M")

	comp.Descriptor().GuideLayer.SetSetting("linkCount", 5)
	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	guides := guideNodes(t, ctx, store, comp)
	if len(guides) != 5 {
		t.Fatalf("guide node count = %d, want 5", len(guides))
	}
}

func TestBuildSkeletonRequiresGuides(t *testing.T) {
	ctx := context.Background()
	_, comp := newComponent(t, "leg", "leg", "L")

	if err := comp.BuildSkeleton(ctx); err == nil {
		t.Fatal("BuildSkeleton succeeded without guides")
	}
}

func TestLegSkeletonDropsUpVector(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "leg", "leg", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.BuildSkeleton(ctx); err != nil {
		t.Fatalf("BuildSkeleton returned error: %v", err)
	}

	layer, err := comp.SkeletonLayerNode(ctx)
	if err != nil {
		t.Fatalf("SkeletonLayerNode returned error: %v", err)
	}
	if layer == nil {
		t.Fatal("skeleton layer not built")
	}
	joints := nodesUnder(t, ctx, store, layer.ID, components.NodeKindJoint)
	if len(joints) != 3 {
		t.Fatalf("joint count = %d, want 3 (upr, mid, end)", len(joints))
	}
	for _, joint := range joints {
		id, err := store.AttrString(ctx, joint.ID, components.AttrID)
		if err != nil {
			t.Fatalf("AttrString returned error: %v", err)
		}
		if id == "upVec" {
			t.Fatal("up-vector guide became a joint")
		}
	}
}

func TestFootSkeletonKeepsBallAndToe(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "foot", "foot", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.BuildSkeleton(ctx); err != nil {
		t.Fatalf("BuildSkeleton returned error: %v", err)
	}
	layer, err := comp.SkeletonLayerNode(ctx)
	if err != nil || layer == nil {
		t.Fatalf("skeleton layer missing: %v", err)
	}
	joints := nodesUnder(t, ctx, store, layer.ID, components.NodeKindJoint)
	if len(joints) != 2 {
		t.Fatalf("joint count = %d, want 2 (ball, toe)", len(joints))
	}
}

func TestBuildRigRequiresSkeleton(t *testing.T) {
	ctx := context.Background()
	_, comp := newComponent(t, "leg", "leg", "L")

	if err := comp.BuildRig(ctx); err == nil {
		t.Fatal("BuildRig succeeded without a skeleton")
	}
}

func TestBuildRigSkipsWhenAlreadyBuilt(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "leg", "leg", "L")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.BuildSkeleton(ctx); err != nil {
		t.Fatalf("BuildSkeleton returned error: %v", err)
	}
	if err := comp.BuildRig(ctx); err != nil {
		t.Fatalf("BuildRig returned error: %v", err)
	}

	layer, err := comp.RigLayerNode(ctx)
	if err != nil || layer == nil {
		t.Fatalf("rig layer missing: %v", err)
	}
	controls := nodesUnder(t, ctx, store, layer.ID, components.NodeKindControl)
	if len(controls) != 4 {
		t.Fatalf("control count = %d, want 4", len(controls))
	}

	// Remove a leaf control by hand; a repeated BuildRig must not rebuild.
	end := findByAttrID(t, ctx, store, controls, "end")
	if err := store.DeleteNode(ctx, end.ID); err != nil {
		t.Fatalf("DeleteNode returned error: %v", err)
	}
	if err := comp.BuildRig(ctx); err != nil {
		t.Fatalf("second BuildRig returned error: %v", err)
	}
	controls = nodesUnder(t, ctx, store, layer.ID, components.NodeKindControl)
	if len(controls) != 3 {
		t.Fatalf("control count after skip = %d, want 3", len(controls))
	}
}

func TestPolishLifecycle(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "leg", "leg", "L")

	if _, err := comp.Polish(ctx); err == nil {
		t.Fatal("Polish succeeded without a rig")
	}

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.BuildSkeleton(ctx); err != nil {
		t.Fatalf("BuildSkeleton returned error: %v", err)
	}
	if err := comp.BuildRig(ctx); err != nil {
		t.Fatalf("BuildRig returned error: %v", err)
	}

	changed, err := comp.Polish(ctx)
	if err != nil {
		t.Fatalf("Polish returned error: %v", err)
	}
	if !changed {
		t.Fatal("Polish reported no change on first call")
	}
	layer, err := comp.GuideLayerNode(ctx)
	if err != nil || layer == nil {
		t.Fatalf("guide layer missing: %v", err)
	}
	visible, err := store.AttrBool(ctx, layer.ID, components.AttrGuideVisibility)
	if err != nil {
		t.Fatalf("AttrBool returned error: %v", err)
	}
	if visible {
		t.Error("guides still visible after polish")
	}

	changed, err = comp.Polish(ctx)
	if err != nil {
		t.Fatalf("second Polish returned error: %v", err)
	}
	if changed {
		t.Fatal("second Polish reported a change")
	}
}

func TestGuideVisibilityToggle(t *testing.T) {
	ctx := context.Background()
	store, comp := newComponent(t, "root", "root", "M")

	if err := comp.BuildGuide(ctx); err != nil {
		t.Fatalf("BuildGuide returned error: %v", err)
	}
	if err := comp.SetGuideVisibility(ctx, true, true); err != nil {
		t.Fatalf("SetGuideVisibility returned error: %v", err)
	}
	hasControls, err := comp.HasGuideControls(ctx)
	if err != nil {
		t.Fatalf("HasGuideControls returned error: %v", err)
	}
	if !hasControls {
		t.Fatal("HasGuideControls = false after enabling control visibility")
	}

	layer, _ := comp.GuideLayerNode(ctx)
	pivots, err := store.AttrBool(ctx, layer.ID, components.AttrGuideVisibility)
	if err != nil {
		t.Fatalf("AttrBool returned error: %v", err)
	}
	if !pivots {
		t.Error("guide pivots not visible")
	}
}
