package rig

import (
	"context"
	"fmt"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/logging"
)

// DuplicateRequest names one source component and the identity its copy
// takes. Empty Name or Side keep the source's value; the engine suffixes the
// name when the resulting identity is taken.
type DuplicateRequest struct {
	Component *components.Component
	Name      string
	Side      string
}

// DuplicateComponents clones a batch of components in two passes: first every
// copy is created from its source's persisted descriptor, then parent and
// constraint references are remapped so in-batch references point at the
// corresponding copies. References to components outside the batch are left
// untouched, a duplicated arm hanging off a spine still follows the original
// spine. The copies are rebuilt to the highest phase any source had reached.
func (r *Rig) DuplicateComponents(ctx context.Context, requests []DuplicateRequest) ([]*components.Component, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}

	copies := make([]*components.Component, 0, len(requests))
	mapping := make(map[descriptor.Identity]*components.Component, len(requests))
	rebuildSkeleton, rebuildRig := false, false

	for _, req := range requests {
		src := req.Component
		if src == nil {
			return nil, fmt.Errorf("duplicate components in %q: request without component", r.name)
		}
		desc, err := src.SerializeFromScene(ctx)
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

		name := req.Name
		if name == "" {
			name = src.Name()
		}
		side := req.Side
		if side == "" {
			side = src.Side()
		}
		unique, err := r.uniqueComponentName(ctx, name, side)
		if err != nil {
			return nil, err
		}
		desc.SetIdentity(descriptor.Identity{Name: unique, Side: side})

		kind, ok := components.LookupKind(src.TypeName())
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingComponentType, src.TypeName())
		}
		clone, err := components.Create(ctx, components.CreateOptions{
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
		r.cache.put(clone)
		mapping[src.Identity()] = clone
		copies = append(copies, clone)
	}

	for _, clone := range copies {
		if err := r.remapBatchReferences(ctx, clone, mapping); err != nil {
			return nil, err
		}
	}

	r.log.Info("components duplicated",
		logging.String(logging.FieldRig, r.name),
		logging.Int("count", len(copies)))

	var err error
	switch {
	case rebuildRig:
		_, err = r.BuildRigs(ctx, copies...)
	case rebuildSkeleton:
		_, err = r.BuildSkeleton(ctx, copies...)
	default:
		_, err = r.BuildGuides(ctx, copies...)
	}
	if err != nil {
		return nil, err
	}
	return copies, nil
}

// DuplicateComponent clones a single component.
func (r *Rig) DuplicateComponent(ctx context.Context, comp *components.Component, name, side string) (*components.Component, error) {
	copies, err := r.DuplicateComponents(ctx, []DuplicateRequest{{Component: comp, Name: name, Side: side}})
	if err != nil {
		return nil, err
	}
	if len(copies) == 0 {
		return nil, nil
	}
	return copies[0], nil
}

// remapBatchReferences repoints the clone's parent, constraint targets and
// space-switch drivers at the in-batch copies of the components they name.
// The mapping is keyed by source identity.
func (r *Rig) remapBatchReferences(ctx context.Context, clone *components.Component, mapping map[descriptor.Identity]*components.Component) error {
	desc := clone.Descriptor()

	if pid, ok := desc.ParentIdentity(); ok {
		if mapped, found := mapping[pid]; found {
			if err := clone.SetParentIdentity(ctx, mapped.Identity()); err != nil {
				return err
			}
		}
	}

	desc.Connections.RemapTargets(func(ref descriptor.GuideRef) (descriptor.GuideRef, bool) {
		mapped, found := mapping[ref.Identity()]
		if !found {
			return ref, false
		}
		id := mapped.Identity()
		return descriptor.GuideRef{Name: id.Name, Side: id.Side, Guide: ref.Guide}, true
	})

	for i := range desc.SpaceSwitch {
		drivers := desc.SpaceSwitch[i].Drivers
		for j, driver := range drivers {
			remapped, changed := remapDriver(driver.Driver, mapping)
			if changed {
				drivers[j] = descriptor.SpaceDriver{Label: driver.Label, Driver: remapped}
			}
		}
	}

	return clone.SaveDescriptor(ctx)
}

// remapDriver rewrites a space-switch driver reference when its component
// identity is in the mapping. Drivers come in both "name:side" and
// "name:side:guideId" forms.
func remapDriver(driver string, mapping map[descriptor.Identity]*components.Component) (string, bool) {
	if ref, err := descriptor.ParseGuideRef(driver); err == nil {
		mapped, found := mapping[ref.Identity()]
		if !found {
			return driver, false
		}
		id := mapped.Identity()
		return descriptor.GuideRef{Name: id.Name, Side: id.Side, Guide: ref.Guide}.String(), true
	}
	if id, err := descriptor.ParseIdentity(driver); err == nil {
		mapped, found := mapping[id]
		if !found {
			return driver, false
		}
		return mapped.Identity().String(), true
	}
	return driver, false
}
