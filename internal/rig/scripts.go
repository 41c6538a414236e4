package rig

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// HookContext is handed to every build-script hook invocation. Properties is
// the script's persisted table from the rig root, keyed by script ID; Kwargs
// carries phase-specific values such as the component identities being built.
type HookContext struct {
	Rig        *Rig
	Properties map[string]any
	Kwargs     map[string]any
}

// Script is a build-script plugin. A script only has to identify itself; it
// takes part in a phase by additionally implementing that phase's hook
// interface. Active scripts are selected by ID through the rig Configuration.
type Script interface {
	ID() string
}

// Per-phase hook interfaces a Script may implement. Pre hooks abort the phase
// on error; post hooks run deferred, even when the build between them failed,
// and their errors are logged rather than propagated.
type (
	PreGuideBuild interface {
		PreGuideBuild(ctx context.Context, hook HookContext) error
	}
	PostGuideBuild interface {
		PostGuideBuild(ctx context.Context, hook HookContext) error
	}
	PreSkeletonBuild interface {
		PreSkeletonBuild(ctx context.Context, hook HookContext) error
	}
	PostSkeletonBuild interface {
		PostSkeletonBuild(ctx context.Context, hook HookContext) error
	}
	PreRigBuild interface {
		PreRigBuild(ctx context.Context, hook HookContext) error
	}
	PostRigBuild interface {
		PostRigBuild(ctx context.Context, hook HookContext) error
	}
	PrePolish interface {
		PrePolish(ctx context.Context, hook HookContext) error
	}
	PostPolish interface {
		PostPolish(ctx context.Context, hook HookContext) error
	}
)

// Pre-only teardown hooks. Deletion never has a post scope; once the nodes
// are gone there is nothing left to hand a script.
type (
	PreDeleteGuides interface {
		PreDeleteGuides(ctx context.Context, hook HookContext) error
	}
	PreDeleteSkeleton interface {
		PreDeleteSkeleton(ctx context.Context, hook HookContext) error
	}
	PreDeleteRigs interface {
		PreDeleteRigs(ctx context.Context, hook HookContext) error
	}
	PreDeleteComponents interface {
		PreDeleteComponents(ctx context.Context, hook HookContext) error
	}
	PreDeleteComponent interface {
		PreDeleteComponent(ctx context.Context, hook HookContext) error
	}
	PreDeleteRig interface {
		PreDeleteRig(ctx context.Context, hook HookContext) error
	}
)

type hookFn func(ctx context.Context, hook HookContext) error

// hookDispatch binds a phase name to the extraction of its pre and post hooks
// from a script. A nil extractor means the phase has no hooks on that edge.
type hookDispatch struct {
	phase string
	pre   func(Script) hookFn
	post  func(Script) hookFn
}

var (
	guideHooks = hookDispatch{
		phase: "guides",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreGuideBuild); ok {
				return h.PreGuideBuild
			}
			return nil
		},
		post: func(s Script) hookFn {
			if h, ok := s.(PostGuideBuild); ok {
				return h.PostGuideBuild
			}
			return nil
		},
	}
	skeletonHooks = hookDispatch{
		phase: "skeleton",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreSkeletonBuild); ok {
				return h.PreSkeletonBuild
			}
			return nil
		},
		post: func(s Script) hookFn {
			if h, ok := s.(PostSkeletonBuild); ok {
				return h.PostSkeletonBuild
			}
			return nil
		},
	}
	rigHooks = hookDispatch{
		phase: "rigs",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreRigBuild); ok {
				return h.PreRigBuild
			}
			return nil
		},
		post: func(s Script) hookFn {
			if h, ok := s.(PostRigBuild); ok {
				return h.PostRigBuild
			}
			return nil
		},
	}
	polishHooks = hookDispatch{
		phase: "polish",
		pre: func(s Script) hookFn {
			if h, ok := s.(PrePolish); ok {
				return h.PrePolish
			}
			return nil
		},
		post: func(s Script) hookFn {
			if h, ok := s.(PostPolish); ok {
				return h.PostPolish
			}
			return nil
		},
	}
	deleteGuidesHooks = hookDispatch{
		phase: "deleteGuides",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreDeleteGuides); ok {
				return h.PreDeleteGuides
			}
			return nil
		},
	}
	deleteSkeletonHooks = hookDispatch{
		phase: "deleteSkeleton",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreDeleteSkeleton); ok {
				return h.PreDeleteSkeleton
			}
			return nil
		},
	}
	deleteRigsHooks = hookDispatch{
		phase: "deleteRigs",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreDeleteRigs); ok {
				return h.PreDeleteRigs
			}
			return nil
		},
	}
	deleteComponentsHooks = hookDispatch{
		phase: "deleteComponents",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreDeleteComponents); ok {
				return h.PreDeleteComponents
			}
			return nil
		},
	}
	deleteComponentHooks = hookDispatch{
		phase: "deleteComponent",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreDeleteComponent); ok {
				return h.PreDeleteComponent
			}
			return nil
		},
	}
	deleteRigHooks = hookDispatch{
		phase: "deleteRig",
		pre: func(s Script) hookFn {
			if h, ok := s.(PreDeleteRig); ok {
				return h.PreDeleteRig
			}
			return nil
		},
	}
)

var (
	scriptsMu sync.RWMutex
	scripts   = make(map[string]Script)
)

// RegisterScript adds a build script to the package registry. It panics on an
// empty ID or a duplicate registration since both are wiring mistakes that
// must surface at init time, not at first build.
func RegisterScript(script Script) {
	id := script.ID()
	if id == "" {
		panic("rig: RegisterScript called with an empty script id")
	}
	scriptsMu.Lock()
	defer scriptsMu.Unlock()
	if _, exists := scripts[id]; exists {
		panic(fmt.Sprintf("rig: build script %q registered twice", id))
	}
	scripts[id] = script
}

// LookupScript returns the script registered under id.
func LookupScript(id string) (Script, bool) {
	scriptsMu.RLock()
	defer scriptsMu.RUnlock()
	script, ok := scripts[id]
	return script, ok
}

// ScriptIDs lists the registered build scripts in sorted order.
func ScriptIDs() []string {
	scriptsMu.RLock()
	defer scriptsMu.RUnlock()
	ids := make([]string, 0, len(scripts))
	for id := range scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
