package scene_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"armature/internal/scene"
)

func openStore(t *testing.T) *scene.Store {
	t.Helper()
	store, err := scene.OpenPath(filepath.Join(t.TempDir(), "scene.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestCreateAndFetchNode(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	created, err := store.CreateNode(ctx, "transform", "spine_M")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated node handle")
	}

	fetched, err := store.Node(ctx, created.ID)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected node, got nil")
	}
	if fetched.Kind != "transform" || fetched.Name != "spine_M" {
		t.Fatalf("unexpected node %q/%q", fetched.Kind, fetched.Name)
	}
	if fetched.Parent != "" {
		t.Fatalf("expected root node, got parent %s", fetched.Parent)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}
}

func TestNodeMissingReturnsNil(t *testing.T) {
	store := openStore(t)

	node, err := store.Node(context.Background(), "no-such-node")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if node != nil {
		t.Fatalf("expected nil for missing node, got %+v", node)
	}
}

func TestChildrenOrderAndKindFilter(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	root, err := store.CreateNode(ctx, "root", "rig")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	names := []string{"first", "second", "third"}
	for _, name := range names {
		if _, err := store.CreateChildNode(ctx, "component", name, root.ID); err != nil {
			t.Fatalf("CreateChildNode %s: %v", name, err)
		}
	}
	if _, err := store.CreateChildNode(ctx, "guide", "pivot", root.ID); err != nil {
		t.Fatalf("CreateChildNode guide: %v", err)
	}

	children, err := store.Children(ctx, root.ID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(children))
	}
	for i, name := range names {
		if children[i].Name != name {
			t.Fatalf("child %d = %s, want %s", i, children[i].Name, name)
		}
	}

	components, err := store.ChildrenByKind(ctx, root.ID, "component")
	if err != nil {
		t.Fatalf("ChildrenByKind: %v", err)
	}
	if len(components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(components))
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	root, err := store.CreateNode(ctx, "root", "rig")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	child, err := store.CreateChildNode(ctx, "component", "arm_L", root.ID)
	if err != nil {
		t.Fatalf("CreateChildNode: %v", err)
	}
	grandchild, err := store.CreateChildNode(ctx, "guide", "elbow", child.ID)
	if err != nil {
		t.Fatalf("CreateChildNode: %v", err)
	}
	if err := store.SetAttr(ctx, grandchild.ID, "index", 2); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}

	if err := store.DeleteNode(ctx, root.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	for _, id := range []scene.NodeID{root.ID, child.ID, grandchild.ID} {
		node, err := store.Node(ctx, id)
		if err != nil {
			t.Fatalf("Node %s: %v", id, err)
		}
		if node != nil {
			t.Fatalf("expected %s to be cascaded away", id)
		}
	}

	if err := store.DeleteNode(ctx, root.ID); !errors.Is(err, scene.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestSetParentRejectsCycles(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, err := store.CreateNode(ctx, "transform", "a")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	b, err := store.CreateChildNode(ctx, "transform", "b", a.ID)
	if err != nil {
		t.Fatalf("CreateChildNode: %v", err)
	}
	c, err := store.CreateChildNode(ctx, "transform", "c", b.ID)
	if err != nil {
		t.Fatalf("CreateChildNode: %v", err)
	}

	if err := store.SetParent(ctx, a.ID, c.ID); err == nil {
		t.Fatal("expected cycle rejection")
	}
	if err := store.SetParent(ctx, a.ID, a.ID); err == nil {
		t.Fatal("expected self-parent rejection")
	}

	if err := store.SetParent(ctx, c.ID, a.ID); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	parent, err := store.Parent(ctx, c.ID)
	if err != nil {
		t.Fatalf("Parent: %v", err)
	}
	if parent == nil || parent.ID != a.ID {
		t.Fatalf("expected parent %s, got %+v", a.ID, parent)
	}

	if err := store.SetParent(ctx, c.ID, ""); err != nil {
		t.Fatalf("SetParent detach: %v", err)
	}
	parent, err = store.Parent(ctx, c.ID)
	if err != nil {
		t.Fatalf("Parent: %v", err)
	}
	if parent != nil {
		t.Fatalf("expected detached node, got parent %+v", parent)
	}
}

func TestAttrRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	node, err := store.CreateNode(ctx, "component", "leg_L")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	if err := store.SetAttrs(ctx, node.ID, map[string]any{
		"side":    "L",
		"pinned":  true,
		"joints":  4,
		"stretch": 1.5,
	}); err != nil {
		t.Fatalf("SetAttrs: %v", err)
	}

	side, err := store.AttrString(ctx, node.ID, "side")
	if err != nil || side != "L" {
		t.Fatalf("AttrString = %q, %v", side, err)
	}
	pinned, err := store.AttrBool(ctx, node.ID, "pinned")
	if err != nil || !pinned {
		t.Fatalf("AttrBool = %v, %v", pinned, err)
	}
	joints, err := store.AttrInt(ctx, node.ID, "joints")
	if err != nil || joints != 4 {
		t.Fatalf("AttrInt = %d, %v", joints, err)
	}
	stretch, err := store.AttrFloat(ctx, node.ID, "stretch")
	if err != nil || stretch != 1.5 {
		t.Fatalf("AttrFloat = %v, %v", stretch, err)
	}

	if err := store.SetAttr(ctx, node.ID, "side", "R"); err != nil {
		t.Fatalf("SetAttr overwrite: %v", err)
	}
	side, err = store.AttrString(ctx, node.ID, "side")
	if err != nil || side != "R" {
		t.Fatalf("AttrString after overwrite = %q, %v", side, err)
	}

	_, ok, err := store.Attr(ctx, node.ID, "missing")
	if err != nil {
		t.Fatalf("Attr: %v", err)
	}
	if ok {
		t.Fatal("expected missing attribute")
	}

	if err := store.DeleteAttr(ctx, node.ID, "pinned"); err != nil {
		t.Fatalf("DeleteAttr: %v", err)
	}
	pinned, err = store.AttrBool(ctx, node.ID, "pinned")
	if err != nil || pinned {
		t.Fatalf("expected deleted attribute to read false, got %v, %v", pinned, err)
	}
}

func TestAttrJSONDocument(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	node, err := store.CreateNode(ctx, "component", "spine_M")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	type doc struct {
		Driver  string   `json:"driver"`
		Targets []string `json:"targets"`
	}
	in := doc{Driver: "world", Targets: []string{"hips", "chest"}}
	if err := store.SetAttr(ctx, node.ID, "spaceSwitch", in); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}

	var out doc
	ok, err := store.AttrJSON(ctx, node.ID, "spaceSwitch", &out)
	if err != nil {
		t.Fatalf("AttrJSON: %v", err)
	}
	if !ok {
		t.Fatal("expected stored document")
	}
	if out.Driver != in.Driver || len(out.Targets) != 2 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestSecondOpenIsLockedOut(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scene.db")

	first, err := scene.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer first.Close()

	if _, err := scene.OpenPath(dbPath); !errors.Is(err, scene.ErrSceneLocked) {
		t.Fatalf("expected ErrSceneLocked, got %v", err)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.CreateNode(ctx, "root", "rig"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	for _, name := range []string{"arm_L", "arm_R"} {
		if _, err := store.CreateNode(ctx, "component", name); err != nil {
			t.Fatalf("CreateNode %s: %v", name, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.ByKind["component"] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	health := store.CheckHealth(ctx)
	if health.Error != "" {
		t.Fatalf("unexpected health error: %s", health.Error)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health %+v", health)
	}
	if !health.IntegrityOK {
		t.Fatal("expected integrity ok")
	}
	if health.NodeCount != 3 {
		t.Fatalf("expected 3 nodes, got %d", health.NodeCount)
	}
	if health.JournalMode != "wal" {
		t.Fatalf("expected wal journal mode, got %q", health.JournalMode)
	}
}
