package rig_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/rig"
)

func init() {
	components.Register(probeKind{})
	rig.RegisterScript(recorderScript{})
}

// trace is a shared timeline of build and hook events so ordering assertions
// can read one list. Tests that use it call resetTrace first and must not run
// in parallel.
var trace = struct {
	mu        sync.Mutex
	events    []string
	failBuild map[string]bool
	failPre   bool
	failPost  bool
	props     map[string]any
	kwargs    map[string]any
}{failBuild: map[string]bool{}}

func resetTrace() {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.events = nil
	trace.failBuild = map[string]bool{}
	trace.failPre = false
	trace.failPost = false
	trace.props = nil
	trace.kwargs = nil
}

func traceEvent(event string) {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.events = append(trace.events, event)
}

func traceEvents() []string {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	return append([]string(nil), trace.events...)
}

// failNextBuild makes the probe guide setup fail for the given token key.
func failNextBuild(key string) {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.failBuild[key] = true
}

func failPreHook() {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.failPre = true
}

func failPostHook() {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.failPost = true
}

// hookCapture returns the properties and kwargs the guide pre hook last saw.
func hookCapture() (map[string]any, map[string]any) {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	return trace.props, trace.kwargs
}

// probeKind is a single-guide component whose guide setup reports into the
// trace and can be told to fail for specific components.
type probeKind struct{}

func (probeKind) Type() string { return "probe" }

func (probeKind) NewDescriptor() descriptor.Descriptor {
	desc := descriptor.New("probe", "", "")
	desc.GuideLayer.Guides = []descriptor.Guide{
		{ID: "root", Scale: [3]float64{1, 1, 1}},
	}
	return *desc
}

func (probeKind) SetupGuides(_ context.Context, comp *components.Component) error {
	trace.mu.Lock()
	trace.events = append(trace.events, "build:"+comp.TokenKey())
	fail := trace.failBuild[comp.TokenKey()]
	trace.mu.Unlock()
	if fail {
		return errors.New("guide setup told to fail")
	}
	return nil
}

// recorderScript traces every hook edge it implements and captures the
// context handed to the guide pre hook.
type recorderScript struct{}

func (recorderScript) ID() string { return "recorder" }

func (recorderScript) PreGuideBuild(_ context.Context, hook rig.HookContext) error {
	trace.mu.Lock()
	trace.events = append(trace.events, "pre:guides")
	trace.props = hook.Properties
	trace.kwargs = hook.Kwargs
	fail := trace.failPre
	trace.mu.Unlock()
	if fail {
		return errors.New("pre hook told to fail")
	}
	return nil
}

func (recorderScript) PostGuideBuild(_ context.Context, _ rig.HookContext) error {
	trace.mu.Lock()
	trace.events = append(trace.events, "post:guides")
	fail := trace.failPost
	trace.mu.Unlock()
	if fail {
		return errors.New("post hook told to fail")
	}
	return nil
}

func (recorderScript) PreSkeletonBuild(_ context.Context, _ rig.HookContext) error {
	traceEvent("pre:skeleton")
	return nil
}

func (recorderScript) PostSkeletonBuild(_ context.Context, _ rig.HookContext) error {
	traceEvent("post:skeleton")
	return nil
}

func (recorderScript) PreRigBuild(_ context.Context, _ rig.HookContext) error {
	traceEvent("pre:rigs")
	return nil
}

func (recorderScript) PostRigBuild(_ context.Context, _ rig.HookContext) error {
	traceEvent("post:rigs")
	return nil
}

func (recorderScript) PrePolish(_ context.Context, _ rig.HookContext) error {
	traceEvent("pre:polish")
	return nil
}

func (recorderScript) PostPolish(_ context.Context, _ rig.HookContext) error {
	traceEvent("post:polish")
	return nil
}

func (recorderScript) PreDeleteGuides(_ context.Context, _ rig.HookContext) error {
	traceEvent("pre:deleteGuides")
	return nil
}

func (recorderScript) PreDeleteComponent(_ context.Context, _ rig.HookContext) error {
	traceEvent("pre:deleteComponent")
	return nil
}

func (recorderScript) PreDeleteRig(_ context.Context, _ rig.HookContext) error {
	traceEvent("pre:deleteRig")
	return nil
}

func mustCreate(t *testing.T, r *rig.Rig, typeTag, name, side string) *components.Component {
	t.Helper()
	comp, err := r.CreateComponent(context.Background(), typeTag, name, side)
	if err != nil {
		t.Fatalf("CreateComponent(%s %s:%s) returned error: %v", typeTag, name, side, err)
	}
	return comp
}

func mustParent(t *testing.T, child, parent *components.Component) {
	t.Helper()
	if err := child.SetParent(context.Background(), parent); err != nil {
		t.Fatalf("SetParent returned error: %v", err)
	}
}

// addConstraint appends a constraint with one target per ref to the
// component and persists the descriptor.
func addConstraint(t *testing.T, comp *components.Component, controller string, refs ...string) {
	t.Helper()
	targets := make([]descriptor.Target, 0, len(refs))
	for _, ref := range refs {
		guideRef, err := descriptor.ParseGuideRef(ref)
		if err != nil {
			t.Fatalf("ParseGuideRef(%s) returned error: %v", ref, err)
		}
		targets = append(targets, descriptor.Target{Label: guideRef.Name, Ref: guideRef})
	}
	desc := comp.Descriptor()
	desc.Connections.ID = "root"
	desc.Connections.Constraints = append(desc.Connections.Constraints, descriptor.Constraint{
		Type:       "matrix",
		Controller: controller,
		Targets:    targets,
	})
	if err := comp.SaveDescriptor(context.Background()); err != nil {
		t.Fatalf("SaveDescriptor returned error: %v", err)
	}
}

// addSpaceSwitch appends a space switch with one driver per ref and persists
// the descriptor.
func addSpaceSwitch(t *testing.T, comp *components.Component, label string, drivers ...string) {
	t.Helper()
	sw := descriptor.SpaceSwitch{Label: label, Driven: "ctl"}
	for _, driver := range drivers {
		sw.Drivers = append(sw.Drivers, descriptor.SpaceDriver{Label: driver, Driver: driver})
	}
	desc := comp.Descriptor()
	desc.SpaceSwitch = append(desc.SpaceSwitch, sw)
	if err := comp.SaveDescriptor(context.Background()); err != nil {
		t.Fatalf("SaveDescriptor returned error: %v", err)
	}
}
