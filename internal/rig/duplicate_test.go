package rig_test

import (
	"context"
	"testing"

	"armature/internal/components"
	"armature/internal/rig"
	"armature/internal/testsupport"
)

func TestDuplicateComponentCopiesDescriptor(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	leg := mustCreate(t, r, "leg", "leg", "L")
	leg.Descriptor().GuideLayer.Guides[0].Translate = [3]float64{2, 5, 0}
	if err := leg.SaveDescriptor(ctx); err != nil {
		t.Fatalf("SaveDescriptor returned error: %v", err)
	}
	if _, err := r.BuildGuides(ctx, leg); err != nil {
		t.Fatalf("BuildGuides returned error: %v", err)
	}

	clone, err := r.DuplicateComponent(ctx, leg, "", "")
	if err != nil {
		t.Fatalf("DuplicateComponent returned error: %v", err)
	}
	if clone.Name() != "leg1" || clone.Side() != "L" {
		t.Errorf("clone identity = %s, want leg1:L", clone.TokenKey())
	}
	if got := clone.Descriptor().GuideLayer.Guides[0].Translate; got != [3]float64{2, 5, 0} {
		t.Errorf("clone guide translate = %v, want [2 5 0]", got)
	}

	// The source stays untouched and the clone is rebuilt to its phase.
	for _, comp := range []*components.Component{leg, clone} {
		has, err := comp.HasGuide(ctx)
		if err != nil {
			t.Fatalf("HasGuide(%s) returned error: %v", comp.TokenKey(), err)
		}
		if !has {
			t.Errorf("%s has no guides after duplicate", comp.TokenKey())
		}
	}
}

func TestDuplicateComponentHonorsNameAndSide(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")
	leg := mustCreate(t, r, "leg", "leg", "L")

	clone, err := r.DuplicateComponent(ctx, leg, "hindleg", "R")
	if err != nil {
		t.Fatalf("DuplicateComponent returned error: %v", err)
	}
	if clone.TokenKey() != "hindleg:R" {
		t.Fatalf("clone identity = %s, want hindleg:R", clone.TokenKey())
	}
}

func TestDuplicateBatchRemapsInBatchReferences(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")
	mustCreate(t, r, "probe", "world", "M")
	mustParent(t, b, a)
	addConstraint(t, b, "ctl", "a:M:root")
	addSpaceSwitch(t, b, "space", "a:M:root", "world:M:root")

	copies, err := r.DuplicateComponents(ctx, []rig.DuplicateRequest{
		{Component: a},
		{Component: b},
	})
	if err != nil {
		t.Fatalf("DuplicateComponents returned error: %v", err)
	}
	if len(copies) != 2 {
		t.Fatalf("copy count = %d, want 2", len(copies))
	}
	cloneA, cloneB := copies[0], copies[1]
	if cloneA.TokenKey() != "a1:M" || cloneB.TokenKey() != "b1:M" {
		t.Fatalf("clone identities = %s %s, want a1:M b1:M", cloneA.TokenKey(), cloneB.TokenKey())
	}

	// References into the batch follow the copies; everything else keeps
	// pointing at the live original.
	parent, ok := cloneB.ParentIdentity()
	if !ok || parent != cloneA.Identity() {
		t.Errorf("clone parent = %v, want a1:M", parent)
	}
	desc := cloneB.Descriptor()
	if got := desc.Connections.Constraints[0].Targets[0].Ref.String(); got != "a1:M:root" {
		t.Errorf("clone constraint target = %q, want a1:M:root", got)
	}
	drivers := desc.SpaceSwitch[0].Drivers
	if drivers[0].Driver != "a1:M:root" {
		t.Errorf("in-batch driver = %q, want a1:M:root", drivers[0].Driver)
	}
	if drivers[1].Driver != "world:M:root" {
		t.Errorf("out-of-batch driver = %q, want world:M:root", drivers[1].Driver)
	}

	// The originals keep their references.
	srcParent, ok := b.ParentIdentity()
	if !ok || srcParent != a.Identity() {
		t.Errorf("source parent = %v, want a:M", srcParent)
	}
	if got := b.Descriptor().Connections.Constraints[0].Targets[0].Ref.String(); got != "a:M:root" {
		t.Errorf("source constraint target = %q, want a:M:root", got)
	}
}

func TestDuplicateRebuildsToSourcePhase(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")
	leg := mustCreate(t, r, "leg", "leg", "L")

	if _, err := r.BuildRigs(ctx, leg); err != nil {
		t.Fatalf("BuildRigs returned error: %v", err)
	}
	clone, err := r.DuplicateComponent(ctx, leg, "", "")
	if err != nil {
		t.Fatalf("DuplicateComponent returned error: %v", err)
	}
	has, err := clone.HasRig(ctx)
	if err != nil {
		t.Fatalf("HasRig returned error: %v", err)
	}
	if !has {
		t.Fatal("clone not rebuilt to the source's rig phase")
	}
}
