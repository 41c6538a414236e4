package rig_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"armature/internal/components"
	"armature/internal/testsupport"
)

func TestBuildGuidesWithoutComponentsIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "empty")

	ok, err := r.BuildGuides(ctx)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if ok {
		t.Fatal("BuildGuides reported success with nothing to build")
	}
}

func TestBuildGuidesBuildsParentsFirst(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	pelvis := mustCreate(t, r, "probe", "pelvis", "M")
	leg := mustCreate(t, r, "probe", "leg", "L")
	mustParent(t, leg, pelvis)
	resetTrace()

	// Building only the leg must pull the pelvis in first.
	ok, err := r.BuildGuides(ctx, leg)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if !ok {
		t.Fatal("BuildGuides reported failure")
	}
	want := []string{"build:pelvis:M", "build:leg:L"}
	if diff := cmp.Diff(want, traceEvents()); diff != "" {
		t.Fatalf("build order mismatch (-want +got):\n%s", diff)
	}
	for _, comp := range []*components.Component{pelvis, leg} {
		has, err := comp.HasGuide(ctx)
		if err != nil {
			t.Fatalf("HasGuide(%s) returned error: %v", comp.TokenKey(), err)
		}
		if !has {
			t.Errorf("%s has no guides after the pass", comp.TokenKey())
		}
	}
}

func TestBuildGuidesStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")
	resetTrace()
	failNextBuild(a.TokenKey())

	// A component fault is reported as an unsuccessful pass, not an error,
	// and nothing after the faulty component is attempted.
	ok, err := r.BuildGuides(ctx, a, b)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if ok {
		t.Fatal("BuildGuides reported success despite a component fault")
	}
	want := []string{"build:a:M"}
	if diff := cmp.Diff(want, traceEvents()); diff != "" {
		t.Fatalf("build attempts mismatch (-want +got):\n%s", diff)
	}
	has, err := b.HasGuide(ctx)
	if err != nil {
		t.Fatalf("HasGuide returned error: %v", err)
	}
	if has {
		t.Error("component after the fault was still built")
	}
}

func TestBuildGuidesKeepsEarlierResultsOnFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")
	resetTrace()
	failNextBuild(b.TokenKey())

	ok, err := r.BuildGuides(ctx, a, b)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if ok {
		t.Fatal("BuildGuides reported success despite a component fault")
	}
	has, err := a.HasGuide(ctx)
	if err != nil {
		t.Fatalf("HasGuide returned error: %v", err)
	}
	if !has {
		t.Error("component built before the fault lost its guides")
	}
}

func TestBuildGuidesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "fkchain", "arm", "L")

	for pass := 0; pass < 2; pass++ {
		ok, err := r.BuildGuides(ctx, comp)
		if err != nil {
			t.Fatalf("pass %d returned error: %v", pass, err)
		}
		if !ok {
			t.Fatalf("pass %d reported failure", pass)
		}
	}

	layer, err := comp.GuideLayerNode(ctx)
	if err != nil {
		t.Fatalf("GuideLayerNode returned error: %v", err)
	}
	guides, err := store.ChildrenByKind(ctx, layer.ID, components.NodeKindGuide)
	if err != nil {
		t.Fatalf("ChildrenByKind returned error: %v", err)
	}
	if len(guides) != 3 {
		t.Fatalf("guide count after rebuild = %d, want 3", len(guides))
	}
}

func TestBuildGuidesAppliesVisibilityConfig(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithGuideVisibility(false, true))
	store, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "probe", "a", "M")

	if _, err := r.BuildGuides(ctx); err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	layer, err := comp.GuideLayerNode(ctx)
	if err != nil {
		t.Fatalf("GuideLayerNode returned error: %v", err)
	}
	pivots, err := store.AttrBool(ctx, layer.ID, components.AttrGuideVisibility)
	if err != nil {
		t.Fatalf("AttrBool returned error: %v", err)
	}
	controls, err := store.AttrBool(ctx, layer.ID, components.AttrGuideControlVisibility)
	if err != nil {
		t.Fatalf("AttrBool returned error: %v", err)
	}
	if pivots || !controls {
		t.Fatalf("guide visibility = %v/%v, want false/true", pivots, controls)
	}
}

func TestBuildGuidesRestoresConnections(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")
	mustParent(t, b, a)
	addConstraint(t, b, "ctl", "a:M:root")

	ok, err := r.BuildGuides(ctx)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if !ok {
		t.Fatal("BuildGuides reported failure")
	}

	// The pass pins b while a's guides are recreated; afterwards the
	// connections must be back, in the scene as well as in memory.
	pinned, err := b.IsPinned(ctx)
	if err != nil {
		t.Fatalf("IsPinned returned error: %v", err)
	}
	if pinned {
		t.Fatal("component left pinned after the pass")
	}
	desc, err := b.SerializeFromScene(ctx)
	if err != nil {
		t.Fatalf("SerializeFromScene returned error: %v", err)
	}
	if len(desc.Connections.Constraints) != 1 {
		t.Fatalf("constraints after pass = %d, want 1", len(desc.Connections.Constraints))
	}
	got := desc.Connections.Constraints[0].Targets[0].Ref.String()
	if got != "a:M:root" {
		t.Errorf("restored target = %q, want a:M:root", got)
	}
}

func TestBuildGuidesRespectsUserPins(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")
	mustParent(t, b, a)
	addConstraint(t, b, "ctl", "a:M:root")

	if _, err := b.Pin(ctx); err != nil {
		t.Fatalf("Pin returned error: %v", err)
	}
	if _, err := r.BuildGuides(ctx); err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}

	// The scope only unpins what it pinned itself.
	pinned, err := b.IsPinned(ctx)
	if err != nil {
		t.Fatalf("IsPinned returned error: %v", err)
	}
	if !pinned {
		t.Fatal("user pin was released by the build pass")
	}
	if _, err := b.Unpin(ctx); err != nil {
		t.Fatalf("Unpin returned error: %v", err)
	}
	if len(b.Descriptor().Connections.Constraints) != 1 {
		t.Fatal("user pin lost its connection snapshot")
	}
}

func TestBuildSkeletonCascadesMissingGuides(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBuildScripts("recorder"))
	_, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "probe", "a", "M")
	resetTrace()

	ok, err := r.BuildSkeleton(ctx)
	if err != nil {
		t.Fatalf("BuildSkeleton returned error: %v", err)
	}
	if !ok {
		t.Fatal("BuildSkeleton reported failure")
	}
	for _, probe := range []struct {
		name string
		has  func(context.Context) (bool, error)
	}{
		{"guides", comp.HasGuide},
		{"skeleton", comp.HasSkeleton},
	} {
		has, err := probe.has(ctx)
		if err != nil {
			t.Fatalf("Has%s returned error: %v", probe.name, err)
		}
		if !has {
			t.Errorf("%s missing after cascading build", probe.name)
		}
	}

	// The guide pass runs as a full pipeline of its own, hooks included.
	want := []string{"pre:guides", "build:a:M", "post:guides", "pre:skeleton", "post:skeleton"}
	if diff := cmp.Diff(want, traceEvents()); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRigsCascadesThroughAllPhases(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "leg", "leg", "L")

	ok, err := r.BuildRigs(ctx)
	if err != nil {
		t.Fatalf("BuildRigs returned error: %v", err)
	}
	if !ok {
		t.Fatal("BuildRigs reported failure")
	}
	has, err := comp.HasRig(ctx)
	if err != nil {
		t.Fatalf("HasRig returned error: %v", err)
	}
	if !has {
		t.Fatal("rig layer missing after cascading build")
	}
}

func TestPolishReportsWhetherAnythingChanged(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")
	mustCreate(t, r, "probe", "a", "M")
	mustCreate(t, r, "probe", "b", "M")

	changed, err := r.Polish(ctx)
	if err != nil {
		t.Fatalf("Polish returned error: %v", err)
	}
	if !changed {
		t.Fatal("first polish pass reported no change")
	}

	// Everything is already polished, so a second pass changes nothing.
	changed, err = r.Polish(ctx)
	if err != nil {
		t.Fatalf("second Polish returned error: %v", err)
	}
	if changed {
		t.Fatal("second polish pass reported a change")
	}

	// A freshly added component makes the next pass report a change again.
	mustCreate(t, r, "probe", "c", "M")
	changed, err = r.Polish(ctx)
	if err != nil {
		t.Fatalf("third Polish returned error: %v", err)
	}
	if !changed {
		t.Fatal("polish after adding a component reported no change")
	}
}

func TestBuildHooksWrapTheBuild(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBuildScripts("recorder"))
	_, r := testsupport.NewRig(t, cfg, "biped")
	mustCreate(t, r, "probe", "a", "M")
	resetTrace()

	if _, err := r.BuildGuides(ctx); err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	want := []string{"pre:guides", "build:a:M", "post:guides"}
	if diff := cmp.Diff(want, traceEvents()); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestPreHookFailureAbortsBuild(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBuildScripts("recorder"))
	_, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "probe", "a", "M")
	resetTrace()
	failPreHook()

	_, err := r.BuildGuides(ctx)
	if err == nil {
		t.Fatal("BuildGuides succeeded despite a failing pre hook")
	}
	has, err := comp.HasGuide(ctx)
	if err != nil {
		t.Fatalf("HasGuide returned error: %v", err)
	}
	if has {
		t.Error("component was built despite the aborted scope")
	}
	want := []string{"pre:guides"}
	if diff := cmp.Diff(want, traceEvents()); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestPostHookRunsAfterFailedBuild(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBuildScripts("recorder"))
	_, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "probe", "a", "M")
	resetTrace()
	failNextBuild(comp.TokenKey())

	ok, err := r.BuildGuides(ctx)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if ok {
		t.Fatal("BuildGuides reported success despite a component fault")
	}
	want := []string{"pre:guides", "build:a:M", "post:guides"}
	if diff := cmp.Diff(want, traceEvents()); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestFailingPostHookDoesNotFailBuild(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBuildScripts("recorder"))
	_, r := testsupport.NewRig(t, cfg, "biped")
	mustCreate(t, r, "probe", "a", "M")
	resetTrace()
	failPostHook()

	ok, err := r.BuildGuides(ctx)
	if err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}
	if !ok {
		t.Fatal("a failing post hook turned into a build failure")
	}
}

func TestHooksReceiveScriptProperties(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithBuildScripts("recorder"))
	_, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "probe", "a", "M")

	props := map[string]any{"strength": 0.75}
	if err := r.SetBuildScriptConfig(ctx, "recorder", props); err != nil {
		t.Fatalf("SetBuildScriptConfig returned error: %v", err)
	}
	resetTrace()

	if _, err := r.BuildGuides(ctx); err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}

	gotProps, gotKwargs := hookCapture()
	if diff := cmp.Diff(props, gotProps); diff != "" {
		t.Fatalf("hook properties mismatch (-want +got):\n%s", diff)
	}
	comps, ok := gotKwargs["components"].([]*components.Component)
	if !ok {
		t.Fatalf("kwargs carry %T, want the component batch", gotKwargs["components"])
	}
	if len(comps) != 1 || comps[0] != comp {
		t.Fatalf("hook component batch = %v, want [a:M]", comps)
	}
}

func TestBuildGuidesHonorsContextCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")
	comp := mustCreate(t, r, "probe", "a", "M")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.BuildGuides(ctx, comp); err == nil {
		t.Fatal("BuildGuides ignored the cancelled context")
	}
}
