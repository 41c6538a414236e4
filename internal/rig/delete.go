package rig

import (
	"context"
	"log/slog"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/logging"
)

// DeleteGuides removes the guide layers of the requested components, every
// component when none are given. One component failing does not stop the
// sweep. Returns the number of layers actually removed.
func (r *Rig) DeleteGuides(ctx context.Context, targets ...*components.Component) (int, error) {
	return r.sweepComponents(ctx, "deleteGuides", deleteGuidesHooks, targets, ContinueOnError,
		(*components.Component).DeleteGuide)
}

// DeleteSkeletons removes the skeleton layers of the requested components.
func (r *Rig) DeleteSkeletons(ctx context.Context, targets ...*components.Component) (int, error) {
	return r.sweepComponents(ctx, "deleteSkeleton", deleteSkeletonHooks, targets, ContinueOnError,
		(*components.Component).DeleteSkeleton)
}

// DeleteRigs removes the rig layers of the requested components. Clearing a
// rig also clears its polish flag underneath.
func (r *Rig) DeleteRigs(ctx context.Context, targets ...*components.Component) (int, error) {
	return r.sweepComponents(ctx, "deleteRigs", deleteRigsHooks, targets, ContinueOnError,
		(*components.Component).DeleteRig)
}

// sweepComponents runs a per-component delete operation over the targets
// inside the dispatch's hook scope. The policy decides whether a failing
// component aborts the sweep or is logged and skipped.
func (r *Rig) sweepComponents(ctx context.Context, phase string, dispatch hookDispatch, targets []*components.Component, policy FailurePolicy, op func(*components.Component, context.Context) (bool, error)) (int, error) {
	run, err := r.startRun(ctx, phase, targets, false)
	if err != nil || run == nil {
		return 0, err
	}
	ctx = run.ctx

	finish, err := r.hookScope(ctx, run.log, run.components(), dispatch)
	if err != nil {
		return 0, err
	}
	defer finish()

	count := 0
	for _, entry := range run.order {
		did, err := op(entry.Component, ctx)
		if err != nil {
			if policy == AbortOnError {
				return count, err
			}
			run.log.Error("component sweep failed",
				logging.String(logging.FieldComponent, entry.Component.TokenKey()),
				logging.Error(err))
			continue
		}
		if did {
			count++
		}
	}
	run.log.Info("sweep finished", logging.Int("count", count))
	return count, nil
}

// DeleteComponent removes one component from the rig after stripping every
// reference to it from the surviving components' constraints and space
// switches. Child components keep their parent declaration; identity
// references are weak and the resolver treats a missing parent as a root.
// Returns false without error when the component is already gone.
func (r *Rig) DeleteComponent(ctx context.Context, comp *components.Component) (bool, error) {
	if err := r.requireSession(); err != nil {
		return false, err
	}
	ctx = logging.WithRig(ctx, r.name)
	ctx = logging.WithPhase(ctx, "deleteComponent")
	log := logging.WithContext(ctx, r.log)
	return r.deleteOne(ctx, log, comp)
}

// DeleteComponents removes a batch of components, every component when none
// are given. Failures are logged and the batch continues; the count of
// removed components is returned.
func (r *Rig) DeleteComponents(ctx context.Context, targets ...*components.Component) (int, error) {
	run, err := r.startRun(ctx, "deleteComponents", targets, false)
	if err != nil || run == nil {
		return 0, err
	}
	ctx = run.ctx

	finish, err := r.hookScope(ctx, run.log, run.components(), deleteComponentsHooks)
	if err != nil {
		return 0, err
	}
	defer finish()

	count := 0
	for _, entry := range run.order {
		did, err := r.deleteOne(ctx, run.log, entry.Component)
		if err != nil {
			run.log.Error("component delete failed",
				logging.String(logging.FieldComponent, entry.Component.TokenKey()),
				logging.Error(err))
			continue
		}
		if did {
			count++
		}
	}
	run.log.Info("components deleted", logging.Int("count", count))
	return count, nil
}

// deleteOne is the shared core of the component deletes: per-component hook,
// reference bookkeeping on the survivors, scene removal, cache eviction.
func (r *Rig) deleteOne(ctx context.Context, log *slog.Logger, comp *components.Component) (bool, error) {
	id := comp.Identity()
	cached, ok := r.cache.get(id)
	if !ok || cached != comp {
		log.Warn("component is not part of this rig, skipping delete",
			logging.String(logging.FieldComponent, id.String()))
		return false, nil
	}

	finish, err := r.hookScope(ctx, log, []*components.Component{comp}, deleteComponentHooks)
	if err != nil {
		return false, err
	}
	defer finish()

	if err := r.stripReferences(ctx, id); err != nil {
		return false, err
	}
	if err := comp.Delete(ctx); err != nil {
		return false, err
	}
	r.cache.remove(id)
	return true, nil
}

// stripReferences removes every constraint target and space-switch driver
// naming the deleted identity from the surviving components. Constraints left
// without targets and switches left without drivers are dropped entirely.
func (r *Rig) stripReferences(ctx context.Context, deleted descriptor.Identity) error {
	comps, err := r.Components(ctx)
	if err != nil {
		return err
	}
	for _, other := range comps {
		if other.Identity() == deleted {
			continue
		}
		desc := other.Descriptor()
		changed := false

		constraints := desc.Connections.Constraints
		filtered := constraints[:0]
		for _, constraint := range constraints {
			var targets []descriptor.Target
			for _, target := range constraint.Targets {
				if target.Ref.Identity() == deleted {
					changed = true
					continue
				}
				targets = append(targets, target)
			}
			if len(targets) == 0 && len(constraint.Targets) > 0 {
				changed = true
				continue
			}
			constraint.Targets = targets
			filtered = append(filtered, constraint)
		}
		desc.Connections.Constraints = filtered

		var switches []descriptor.SpaceSwitch
		for _, sw := range desc.SpaceSwitch {
			if sw.ReferencesComponent(deleted) {
				changed = true
				sw = sw.WithoutComponent(deleted)
				if len(sw.Drivers) == 0 {
					continue
				}
			}
			switches = append(switches, sw)
		}
		desc.SpaceSwitch = switches

		if changed {
			if err := other.SaveDescriptor(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete tears the whole rig down: rig layers, skeletons and guides in
// reverse phase order, then the components and finally the root node. The
// teardown sweeps are fail-fast, the root must not disappear under a
// half-removed rig. The façade returns to the unbound state on success.
func (r *Rig) Delete(ctx context.Context) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	comps, err := r.Components(ctx)
	if err != nil {
		return err
	}
	ctx = logging.WithRig(ctx, r.name)
	ctx = logging.WithPhase(ctx, "deleteRig")
	log := logging.WithContext(ctx, r.log)

	finish, err := r.hookScope(ctx, log, comps, deleteRigHooks)
	if err != nil {
		return err
	}
	defer finish()

	if _, err := r.sweepComponents(ctx, "deleteRigs", deleteRigsHooks, comps, AbortOnError,
		(*components.Component).DeleteRig); err != nil {
		return err
	}
	if _, err := r.sweepComponents(ctx, "deleteSkeleton", deleteSkeletonHooks, comps, AbortOnError,
		(*components.Component).DeleteSkeleton); err != nil {
		return err
	}
	if _, err := r.sweepComponents(ctx, "deleteGuides", deleteGuidesHooks, comps, AbortOnError,
		(*components.Component).DeleteGuide); err != nil {
		return err
	}

	for _, comp := range comps {
		if err := comp.Delete(ctx); err != nil {
			return err
		}
		r.cache.remove(comp.Identity())
	}

	if err := r.store.DeleteNode(ctx, r.root); err != nil {
		return err
	}
	log.Info("rig deleted", logging.String(logging.FieldRig, r.name))

	r.name = ""
	r.root = ""
	r.layer = ""
	r.cache.clear()
	return nil
}
