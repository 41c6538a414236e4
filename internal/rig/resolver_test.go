package rig_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/rig"
	"armature/internal/testsupport"
)

func orderKeys(entries []rig.BuildOrderEntry) []string {
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Component.TokenKey())
	}
	return keys
}

func TestResolveBuildOrderPullsAncestorsIn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	pelvis := mustCreate(t, r, "root", "pelvis", "M")
	leg := mustCreate(t, r, "leg", "leg", "L")
	foot := mustCreate(t, r, "foot", "foot", "L")
	arm := mustCreate(t, r, "fkchain", "arm", "L")
	mustParent(t, leg, pelvis)
	mustParent(t, foot, leg)

	parents := map[descriptor.Identity]*components.Component{
		leg.Identity():  pelvis,
		foot.Identity(): leg,
	}

	// Requesting only the foot must pull leg and pelvis in, in ancestor
	// order; the unrelated arm keeps its input position.
	order := rig.ResolveBuildOrder([]*components.Component{foot, arm}, parents)
	want := []string{"pelvis:M", "leg:L", "foot:L", "arm:L"}
	if diff := cmp.Diff(want, orderKeys(order)); diff != "" {
		t.Fatalf("build order mismatch (-want +got):\n%s", diff)
	}

	if order[0].Parent != nil {
		t.Errorf("pelvis resolved parent %v, want nil", order[0].Parent.TokenKey())
	}
	if order[2].Parent != leg {
		t.Errorf("foot resolved parent %v, want leg:L", order[2].Parent)
	}
}

func TestResolveBuildOrderPlacesEachComponentOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "biped")

	pelvis := mustCreate(t, r, "root", "pelvis", "M")
	left := mustCreate(t, r, "leg", "leg", "L")
	right := mustCreate(t, r, "leg", "leg", "R")
	mustParent(t, left, pelvis)
	mustParent(t, right, pelvis)

	parents := map[descriptor.Identity]*components.Component{
		left.Identity():  pelvis,
		right.Identity(): pelvis,
	}

	// Both legs share the pelvis and the pelvis is also requested twice;
	// it must still appear exactly once.
	order := rig.ResolveBuildOrder([]*components.Component{left, right, pelvis, pelvis}, parents)
	want := []string{"pelvis:M", "leg:L", "leg:R"}
	if diff := cmp.Diff(want, orderKeys(order)); diff != "" {
		t.Fatalf("build order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBuildOrderKeepsInputOrderForSiblings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "props")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")
	c := mustCreate(t, r, "probe", "c", "M")

	order := rig.ResolveBuildOrder([]*components.Component{b, c, a}, nil)
	want := []string{"b:M", "c:M", "a:M"}
	if diff := cmp.Diff(want, orderKeys(order)); diff != "" {
		t.Fatalf("build order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBuildOrderTerminatesOnParentCycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, r := testsupport.NewRig(t, cfg, "cycle")

	a := mustCreate(t, r, "probe", "a", "M")
	b := mustCreate(t, r, "probe", "b", "M")

	parents := map[descriptor.Identity]*components.Component{
		a.Identity(): b,
		b.Identity(): a,
	}

	order := rig.ResolveBuildOrder([]*components.Component{a}, parents)
	want := []string{"b:M", "a:M"}
	if diff := cmp.Diff(want, orderKeys(order)); diff != "" {
		t.Fatalf("build order mismatch (-want +got):\n%s", diff)
	}
}
