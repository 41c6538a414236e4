// Package doctor provides health checks for the scene database, the
// configured directories, and the registries a build depends on.
//
// The CLI "armature doctor" command runs RunAll and renders each Result.
// Individual check functions are exported so other surfaces can probe a
// single concern, for example the scene lock, without the full sweep.
package doctor
