// Package main hosts the Armature CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into rig
// engine calls: session management, component creation, the phase builds,
// mirror and duplicate operations, template round trips, and configuration
// scaffolding. It centralizes configuration resolution, scene store setup,
// and structured logging so subcommands can focus on user experience instead
// of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
