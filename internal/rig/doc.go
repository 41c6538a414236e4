// Package rig is the build-orchestration façade of the engine: one Rig per
// character, bound to a persisted root inside a scene store.
//
// The façade owns everything the individual component does not: the identity
// cache holding the single live instance per component, dependency resolution
// into a parent-first build order, the phase pipelines with their build-script
// hook scopes and pin/unpin disconnect windows, mirror and duplicate batch
// engines, deletion bookkeeping across the surviving components, and the
// template round trip that captures a rig as data and rebuilds it in a fresh
// scene.
//
// Pipelines distinguish component faults from infrastructure faults: a
// component that fails to build is logged under the pass's run ID and the
// pipeline reports an unsuccessful pass without an error, while storage and
// configuration errors propagate to the caller.
package rig
