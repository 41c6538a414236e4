// Package components implements the build unit of a rig.
//
// A Component pairs a descriptor (the declarative recipe) with a persisted
// meta node in the scene store and knows how to realize itself in phases:
// guides, skeleton, rig, polish. Each phase materializes scene nodes from the
// descriptor, so rebuilding a phase is deterministic and idempotent.
//
// Component types are registered as Kind values in a package registry. A Kind
// supplies the default descriptor for new components and may implement
// optional per-phase setup hooks that run after the generic materialization.
package components
