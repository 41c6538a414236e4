package components

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"armature/internal/descriptor"
)

// Kind defines a component type: the tag it registers under and the default
// descriptor new components of that type start from.
type Kind interface {
	Type() string
	NewDescriptor() descriptor.Descriptor
}

// Optional per-phase setup hooks a Kind may implement. Build hooks run after
// the phase layer exists and before the engine materializes DAG nodes, so a
// hook shapes the descriptor and the engine stays the single writer of scene
// nodes.
type (
	// GuideSetup refines the guide layer, for example growing a chain to a
	// length setting.
	GuideSetup interface {
		SetupGuides(ctx context.Context, comp *Component) error
	}
	// SkeletonSetup refines the derived joint chain.
	SkeletonSetup interface {
		SetupSkeleton(ctx context.Context, comp *Component) error
	}
	// RigSetup refines the control layer.
	RigSetup interface {
		SetupRig(ctx context.Context, comp *Component) error
	}
	// PolishSetup runs component cleanup during the polish phase.
	PolishSetup interface {
		SetupPolish(ctx context.Context, comp *Component) error
	}
)

var (
	kindsMu sync.RWMutex
	kinds   = make(map[string]Kind)
)

// Register adds a Kind to the package registry. It panics on an empty tag or
// a duplicate registration since both are wiring mistakes that must surface
// at init time, not at first use.
func Register(kind Kind) {
	tag := kind.Type()
	if tag == "" {
		panic("components: Register called with an empty kind tag")
	}
	kindsMu.Lock()
	defer kindsMu.Unlock()
	if _, exists := kinds[tag]; exists {
		panic(fmt.Sprintf("components: kind %q registered twice", tag))
	}
	kinds[tag] = kind
}

// LookupKind returns the Kind registered under tag.
func LookupKind(tag string) (Kind, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	kind, ok := kinds[tag]
	return kind, ok
}

// KindTags lists the registered component types in sorted order.
func KindTags() []string {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	tags := make([]string, 0, len(kinds))
	for tag := range kinds {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
