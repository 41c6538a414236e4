package rig

import (
	"context"
	"fmt"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/logging"
	"armature/internal/naming"
)

// MirrorRequest names one source component and how it crosses the mirror
// plane. An empty Side derives the target from the preset's symmetry map.
// Duplicate keeps the source and mirrors a copy; otherwise the component
// itself moves to the other side.
type MirrorRequest struct {
	Component *components.Component
	Side      string
	Duplicate bool
}

// GuideTransform records the mirrored transform computed for one guide, so
// callers driving an interactive scene can apply the same flip to nodes the
// engine does not own.
type GuideTransform struct {
	Component *components.Component
	Guide     string
	Translate [3]float64
	Rotate    [4]float64
}

// MirrorResult lists the mirrored components and every guide transform the
// mirror computed.
type MirrorResult struct {
	Components []*components.Component
	Transforms []GuideTransform
}

// mirrorEntry carries one request through the two mirror passes: the
// component on its target side plus the source state captured before any
// mutation.
type mirrorEntry struct {
	component *components.Component
	source    descriptor.Identity
	capture   *descriptor.Descriptor
}

// MirrorComponents mirrors a batch across the YZ plane in two passes. The
// first pass captures each source's persisted state and moves or clones it to
// the target side; the second flips every guide transform and remaps parent,
// constraint and space-switch references, preferring the in-batch mirror of a
// referenced component and falling back to a live component already on the
// symmetric side. References with no counterpart stay on the original, a
// mirrored arm can keep following a centered spine. Mirrored components are
// rebuilt to the highest phase any source had reached, with skeletons
// re-derived from the flipped guides.
func (r *Rig) MirrorComponents(ctx context.Context, requests []MirrorRequest) (*MirrorResult, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return &MirrorResult{}, nil
	}

	entries := make([]*mirrorEntry, 0, len(requests))
	bySource := make(map[descriptor.Identity]*components.Component, len(requests))
	rebuildSkeleton, rebuildRig := false, false

	for _, req := range requests {
		src := req.Component
		if src == nil {
			return nil, fmt.Errorf("mirror components in %q: request without component", r.name)
		}
		source := src.Identity()

		capture, err := src.SerializeFromScene(ctx)
		if err != nil {
			return nil, err
		}
		if !rebuildSkeleton {
			has, err := src.HasSkeleton(ctx)
			if err != nil {
				return nil, err
			}
			rebuildSkeleton = has
		}
		if !rebuildRig {
			has, err := src.HasRig(ctx)
			if err != nil {
				return nil, err
			}
			rebuildRig = has
		}

		side := req.Side
		if side == "" {
			side = r.preset.SymmetricSide(source.Side)
		}
		if side == source.Side {
			return nil, fmt.Errorf("mirror %s: side %q has no symmetric counterpart", source, source.Side)
		}

		var mirrored *components.Component
		if req.Duplicate {
			unique, err := r.uniqueComponentName(ctx, source.Name, side)
			if err != nil {
				return nil, err
			}
			desc := capture.Copy()
			desc.SetIdentity(descriptor.Identity{Name: unique, Side: side})
			kind, ok := components.LookupKind(src.TypeName())
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrMissingComponentType, src.TypeName())
			}
			mirrored, err = components.Create(ctx, components.CreateOptions{
				Store:      r.store,
				Preset:     r.preset,
				Logger:     r.log,
				Layer:      r.layer,
				Kind:       kind,
				Descriptor: *desc,
			})
			if err != nil {
				return nil, err
			}
			r.cache.put(mirrored)
		} else {
			// Detach before the identity changes so constraints into the old
			// side cannot dangle mid-move; the capture keeps them for pass 2.
			if err := src.RemoveAllParents(ctx); err != nil {
				return nil, err
			}
			if err := r.relocateComponent(ctx, src, side); err != nil {
				return nil, err
			}
			mirrored = src
		}

		entries = append(entries, &mirrorEntry{component: mirrored, source: source, capture: capture})
		bySource[source] = mirrored
	}

	result := &MirrorResult{Components: make([]*components.Component, 0, len(entries))}
	for _, entry := range entries {
		transforms, err := r.mirrorEntry(ctx, entry, bySource)
		if err != nil {
			return nil, err
		}
		result.Components = append(result.Components, entry.component)
		result.Transforms = append(result.Transforms, transforms...)
	}

	r.log.Info("components mirrored",
		logging.String(logging.FieldRig, r.name),
		logging.Int("count", len(result.Components)))

	// A moved component keeps its build flags, so the guide pass always runs
	// explicitly: it re-materializes the flipped transforms and invalidates
	// the phases above, which the cascades then rebuild.
	ok, err := r.BuildGuides(ctx, result.Components...)
	if err == nil && ok {
		switch {
		case rebuildRig:
			_, err = r.BuildRigs(ctx, result.Components...)
		case rebuildSkeleton:
			_, err = r.BuildSkeleton(ctx, result.Components...)
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MirrorComponent mirrors a single component.
func (r *Rig) MirrorComponent(ctx context.Context, comp *components.Component, side string, duplicate bool) (*MirrorResult, error) {
	return r.MirrorComponents(ctx, []MirrorRequest{{Component: comp, Side: side, Duplicate: duplicate}})
}

// relocateComponent moves a component to another side, renaming it first when
// the target identity is taken so the cache never holds two components under
// one key.
func (r *Rig) relocateComponent(ctx context.Context, comp *components.Component, side string) error {
	existing, err := r.Component(ctx, comp.Name(), side)
	if err != nil {
		return err
	}
	if existing != nil && existing != comp {
		unique, err := r.uniqueNameAcrossSides(ctx, comp, comp.Name(), comp.Side(), side)
		if err != nil {
			return err
		}
		if err := r.RenameComponent(ctx, comp, unique); err != nil {
			return err
		}
	}
	return r.SetComponentSide(ctx, comp, side)
}

// uniqueNameAcrossSides finds a name unused on every listed side, ignoring
// the component about to take it. Renaming before a side switch has to hold
// on both the old and the new side.
func (r *Rig) uniqueNameAcrossSides(ctx context.Context, mover *components.Component, base string, sides ...string) (string, error) {
	comps, err := r.Components(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(comps))
	for _, comp := range comps {
		if comp == mover {
			continue
		}
		for _, side := range sides {
			if comp.Side() == side {
				taken[comp.Name()] = true
				break
			}
		}
	}
	return naming.UniqueName(base, func(candidate string) bool {
		return taken[candidate]
	}), nil
}

// mirrorEntry flips the entry's guide transforms and remaps its references,
// then persists the descriptor. The skeleton records are cleared so the next
// skeleton build re-derives joints from the flipped guides.
func (r *Rig) mirrorEntry(ctx context.Context, entry *mirrorEntry, bySource map[descriptor.Identity]*components.Component) ([]GuideTransform, error) {
	comp := entry.component
	desc := comp.Descriptor()

	// Moves detached their references in pass 1; restore them from the
	// capture before remapping. For clones this re-applies the same values.
	restored := entry.capture.Copy()
	desc.Connections = restored.Connections
	desc.SpaceSwitch = restored.SpaceSwitch

	if pid, ok := entry.capture.ParentIdentity(); ok {
		resolved, found, err := r.mirrorCounterpart(ctx, pid, bySource)
		if err != nil {
			return nil, err
		}
		if found {
			desc.SetParent(resolved)
		} else {
			desc.SetParent(pid)
		}
	}

	var remapErr error
	desc.Connections.RemapTargets(func(ref descriptor.GuideRef) (descriptor.GuideRef, bool) {
		resolved, found, err := r.mirrorCounterpart(ctx, ref.Identity(), bySource)
		if err != nil {
			if remapErr == nil {
				remapErr = err
			}
			return ref, false
		}
		if !found {
			return ref, false
		}
		return descriptor.GuideRef{Name: resolved.Name, Side: resolved.Side, Guide: ref.Guide}, true
	})
	if remapErr != nil {
		return nil, remapErr
	}

	for i := range desc.SpaceSwitch {
		drivers := desc.SpaceSwitch[i].Drivers
		for j, driver := range drivers {
			remapped, changed, err := r.mirrorDriver(ctx, driver.Driver, bySource)
			if err != nil {
				return nil, err
			}
			if changed {
				drivers[j] = descriptor.SpaceDriver{Label: driver.Label, Driver: remapped}
			}
		}
	}

	transforms := make([]GuideTransform, 0, len(desc.GuideLayer.Guides))
	for i := range desc.GuideLayer.Guides {
		guide := &desc.GuideLayer.Guides[i]
		guide.Translate = mirrorTranslate(guide.Translate)
		guide.Rotate = mirrorRotation(guide.Rotate)
		transforms = append(transforms, GuideTransform{
			Component: comp,
			Guide:     guide.ID,
			Translate: guide.Translate,
			Rotate:    guide.Rotate,
		})
	}
	desc.Skeleton.Clear()

	if err := comp.SaveDescriptor(ctx); err != nil {
		return nil, err
	}
	r.log.Debug("component mirrored",
		logging.String("source", entry.source.String()),
		logging.String(logging.FieldComponent, comp.TokenKey()))
	return transforms, nil
}

// mirrorCounterpart resolves the mirrored stand-in for a referenced
// component: the in-batch mirror when the identity was part of this call,
// otherwise a live component already sitting on the symmetric side. Returns
// false for identities without a counterpart.
func (r *Rig) mirrorCounterpart(ctx context.Context, id descriptor.Identity, bySource map[descriptor.Identity]*components.Component) (descriptor.Identity, bool, error) {
	if mirrored, ok := bySource[id]; ok {
		return mirrored.Identity(), true, nil
	}
	symmetric := r.preset.SymmetricSide(id.Side)
	if symmetric == id.Side {
		return descriptor.Identity{}, false, nil
	}
	live, err := r.Component(ctx, id.Name, symmetric)
	if err != nil {
		return descriptor.Identity{}, false, err
	}
	if live == nil {
		r.log.Warn("no mirror counterpart, keeping reference",
			logging.String(logging.FieldRig, r.name),
			logging.String(logging.FieldComponent, id.String()))
		return descriptor.Identity{}, false, nil
	}
	return live.Identity(), true, nil
}

// mirrorDriver rewrites a space-switch driver reference through
// mirrorCounterpart, handling both the "name:side" and "name:side:guideId"
// forms.
func (r *Rig) mirrorDriver(ctx context.Context, driver string, bySource map[descriptor.Identity]*components.Component) (string, bool, error) {
	if ref, err := descriptor.ParseGuideRef(driver); err == nil {
		resolved, found, cerr := r.mirrorCounterpart(ctx, ref.Identity(), bySource)
		if cerr != nil || !found {
			return driver, false, cerr
		}
		return descriptor.GuideRef{Name: resolved.Name, Side: resolved.Side, Guide: ref.Guide}.String(), true, nil
	}
	if id, err := descriptor.ParseIdentity(driver); err == nil {
		resolved, found, cerr := r.mirrorCounterpart(ctx, id, bySource)
		if cerr != nil || !found {
			return driver, false, cerr
		}
		return resolved.String(), true, nil
	}
	return driver, false, nil
}

// mirrorTranslate flips a translation across the YZ plane.
func mirrorTranslate(t [3]float64) [3]float64 {
	return [3]float64{-t[0], t[1], t[2]}
}

// mirrorRotation flips a quaternion across the YZ plane.
func mirrorRotation(q [4]float64) [4]float64 {
	return [4]float64{q[0], -q[1], -q[2], q[3]}
}
