package rig

import "fmt"

// BuildState is the rig-wide build progress. It is derived by probing
// component flags, never stored.
type BuildState int

// Build states in phase order. StateControlVisibility is the half-step where
// guides exist and their controls are shown, between the guide and skeleton
// phases.
const (
	StateNotBuilt BuildState = iota
	StateGuides
	StateControlVisibility
	StateSkeleton
	StateRig
	StatePolished
)

func (s BuildState) String() string {
	switch s {
	case StateNotBuilt:
		return "notBuilt"
	case StateGuides:
		return "guides"
	case StateControlVisibility:
		return "controlVisibility"
	case StateSkeleton:
		return "skeleton"
	case StateRig:
		return "rig"
	case StatePolished:
		return "polished"
	default:
		return fmt.Sprintf("buildState(%d)", int(s))
	}
}
