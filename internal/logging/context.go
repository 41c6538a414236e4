package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldScope is the standardized structured logging key for engine subsystem names.
	FieldScope = "scope"
	// FieldRig is the standardized structured logging key for rig names.
	FieldRig = "rig"
	// FieldComponent is the standardized structured logging key for component identities ("name:side").
	FieldComponent = "component"
	// FieldSide is the standardized structured logging key for component side tokens.
	FieldSide = "side"
	// FieldKind is the standardized structured logging key for component type tags.
	FieldKind = "kind"
	// FieldPhase is the standardized structured logging key for build phase names.
	FieldPhase = "phase"
	// FieldScript is the standardized structured logging key for build script IDs.
	FieldScript = "script"
	// FieldNode is the standardized structured logging key for scene node handles.
	FieldNode = "node"
	// FieldTemplate is the standardized structured logging key for template names.
	FieldTemplate = "template"
	// FieldRunID is the standardized structured logging key for pipeline run correlation identifiers.
	FieldRunID = "run_id"
)

type contextKey string

const (
	rigContextKey   contextKey = "armature.rig"
	phaseContextKey contextKey = "armature.phase"
	runIDContextKey contextKey = "armature.run_id"
)

// WithRig stores the rig name on the context for downstream log tagging.
func WithRig(ctx context.Context, rig string) context.Context {
	rig = strings.TrimSpace(rig)
	if rig == "" {
		return ctx
	}
	return context.WithValue(ctx, rigContextKey, rig)
}

// WithPhase stores the active build phase name on the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseContextKey, phase)
}

// WithRunID stores a pipeline run correlation ID on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RigFromContext returns the rig name stored on the context, if any.
func RigFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, rigContextKey)
}

// PhaseFromContext returns the build phase stored on the context, if any.
func PhaseFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, phaseContextKey)
}

// RunIDFromContext returns the run correlation ID stored on the context, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, runIDContextKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if rig, ok := RigFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRig, rig))
	}
	if phase, ok := PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
