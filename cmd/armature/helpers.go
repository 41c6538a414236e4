package main

import (
	"context"
	"fmt"
	"strings"

	"armature/internal/components"
	"armature/internal/rig"
)

// parseComponentToken splits a "name:side" argument into its parts.
func parseComponentToken(arg string) (string, string, error) {
	arg = strings.TrimSpace(arg)
	parts := strings.Split(arg, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid component %q (expected name:side, e.g. leg:L)", arg)
	}
	return parts[0], parts[1], nil
}

// resolveComponent looks up one name:side token in the active session.
func resolveComponent(ctx context.Context, r *rig.Rig, arg string) (*components.Component, error) {
	name, side, err := parseComponentToken(arg)
	if err != nil {
		return nil, err
	}
	comp, err := r.Component(ctx, name, side)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, fmt.Errorf("component %s:%s not found in rig %q", name, side, r.Name())
	}
	return comp, nil
}

// resolveComponents maps each name:side argument to a live component. An
// empty argument list resolves to nil, which the phase entry points treat as
// the whole rig.
func resolveComponents(ctx context.Context, r *rig.Rig, args []string) ([]*components.Component, error) {
	if len(args) == 0 {
		return nil, nil
	}
	targets := make([]*components.Component, 0, len(args))
	for _, arg := range args {
		comp, err := resolveComponent(ctx, r, arg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, comp)
	}
	return targets, nil
}

// componentPhaseCells renders the per-phase flags of a component as table
// cells in guide, skeleton, rig, polish order.
func componentPhaseCells(ctx context.Context, comp *components.Component) ([]string, error) {
	guide, err := comp.HasGuide(ctx)
	if err != nil {
		return nil, err
	}
	skeleton, err := comp.HasSkeleton(ctx)
	if err != nil {
		return nil, err
	}
	hasRig, err := comp.HasRig(ctx)
	if err != nil {
		return nil, err
	}
	polished, err := comp.HasPolished(ctx)
	if err != nil {
		return nil, err
	}
	return []string{yesNo(guide), yesNo(skeleton), yesNo(hasRig), yesNo(polished)}, nil
}

func parentCell(comp *components.Component) string {
	parent, ok := comp.ParentIdentity()
	if !ok {
		return "-"
	}
	return parent.String()
}
