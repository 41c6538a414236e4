// Package config loads, normalizes, and validates Armature configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARMATURE_SCENE. The Config type centralizes every knob the CLI and the rig
// engine need: the scene database location, template search directories, the
// active naming preset, and the rig defaults applied to new sessions.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
