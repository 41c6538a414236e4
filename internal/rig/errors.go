package rig

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the façade. Callers classify wrapped
// occurrences with errors.Is.
var (
	// ErrMissingComponentType reports a component type tag with no registry
	// entry. Nothing is created when CreateComponent fails with it.
	ErrMissingComponentType = errors.New("component type is not registered")

	// ErrMissingMetaNode reports a scene node that does not belong to any
	// component, surfaced by ComponentFromNode.
	ErrMissingMetaNode = errors.New("node does not belong to a component")

	// ErrInitializeComponent reports a persisted component that could not be
	// instantiated during cache reconciliation. It aborts the enumeration
	// that hit it.
	ErrInitializeComponent = errors.New("initialize component from scene")

	// ErrBuildComponentUnknown reports a component failure inside a phase
	// build loop. The phase pipelines convert it into a false return after
	// logging; components built before the failure stay built.
	ErrBuildComponentUnknown = errors.New("component build failed")
)

// FailurePolicy selects how an operation spanning many components reacts when
// one of them fails.
type FailurePolicy int

const (
	// AbortOnError stops at the first failure. The build pipelines use it so
	// a broken parent never gets children stacked on top of it.
	AbortOnError FailurePolicy = iota

	// ContinueOnError logs failures and keeps going. Teardown sweeps use it
	// so one broken component cannot strand the rest of the rig.
	ContinueOnError
)

func (p FailurePolicy) String() string {
	switch p {
	case AbortOnError:
		return "abortOnError"
	case ContinueOnError:
		return "continueOnError"
	default:
		return fmt.Sprintf("failurePolicy(%d)", int(p))
	}
}
