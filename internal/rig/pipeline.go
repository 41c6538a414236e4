package rig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/logging"
)

// BuildGuides runs the guide pipeline: resolve build order over the requested
// components (all components when none are given), pin connected neighbours,
// run the guide hook scope and build every entry parent-first. Built
// components get their naming preset applied and the configured guide
// visibility. Returns false without error when a component build fails, the
// failure is logged under the run ID; infrastructure errors propagate.
func (r *Rig) BuildGuides(ctx context.Context, targets ...*components.Component) (bool, error) {
	run, err := r.startRun(ctx, "guides", targets, true)
	if err != nil || run == nil {
		return false, err
	}
	ctx = run.ctx

	finish, err := r.hookScope(ctx, run.log, run.components(), guideHooks)
	if err != nil {
		return false, err
	}
	defer finish()

	restore, err := r.disconnectComponents(ctx, run)
	if err != nil {
		return false, err
	}
	defer restore()

	err = r.buildComponents(ctx, run.order, func(ctx context.Context, comp *components.Component) error {
		if err := comp.BuildGuide(ctx); err != nil {
			return err
		}
		if err := comp.ApplyNaming(ctx); err != nil {
			return err
		}
		return comp.SetGuideVisibility(ctx, r.config.GuidePivotVisibility, r.config.GuideControlVisibility)
	})
	return run.finish(err)
}

// BuildSkeleton runs the skeleton pipeline over the requested components. Any
// target without built guides triggers a full guide pipeline pass first, so
// skeletons never build over stale or missing guides.
func (r *Rig) BuildSkeleton(ctx context.Context, targets ...*components.Component) (bool, error) {
	needGuides, err := r.anyMissing(ctx, targets, (*components.Component).HasGuide)
	if err != nil {
		return false, err
	}
	if needGuides {
		ok, err := r.BuildGuides(ctx, targets...)
		if err != nil || !ok {
			return ok, err
		}
	}

	run, err := r.startRun(ctx, "skeleton", targets, true)
	if err != nil || run == nil {
		return false, err
	}
	ctx = run.ctx

	if _, err := r.ensureRigLayer(ctx, components.NodeKindSkeletonLayer, "skeleton"); err != nil {
		return false, err
	}

	finish, err := r.hookScope(ctx, run.log, run.components(), skeletonHooks)
	if err != nil {
		return false, err
	}
	defer finish()

	err = r.buildComponents(ctx, run.order, func(ctx context.Context, comp *components.Component) error {
		return comp.BuildSkeleton(ctx)
	})
	return run.finish(err)
}

// BuildRigs runs the rig pipeline over the requested components, building the
// skeleton phase first when any target lacks one. Components that already
// carry a rig are left untouched by the component layer, so repeated calls
// are safe around animated rigs.
func (r *Rig) BuildRigs(ctx context.Context, targets ...*components.Component) (bool, error) {
	needSkeleton, err := r.anyMissing(ctx, targets, (*components.Component).HasSkeleton)
	if err != nil {
		return false, err
	}
	if needSkeleton {
		ok, err := r.BuildSkeleton(ctx, targets...)
		if err != nil || !ok {
			return ok, err
		}
	}

	run, err := r.startRun(ctx, "rigs", targets, true)
	if err != nil || run == nil {
		return false, err
	}
	ctx = run.ctx

	if _, err := r.ensureRigLayer(ctx, components.NodeKindGeometryLayer, "geometry"); err != nil {
		return false, err
	}

	finish, err := r.hookScope(ctx, run.log, run.components(), rigHooks)
	if err != nil {
		return false, err
	}
	defer finish()

	err = r.buildComponents(ctx, run.order, func(ctx context.Context, comp *components.Component) error {
		return comp.BuildRig(ctx)
	})
	return run.finish(err)
}

// Polish finalizes the requested components, cascading through the rig
// pipeline first when any target lacks a rig. Returns true when at least one
// component changed state; a rig whose targets were all polished already
// reports false without error.
func (r *Rig) Polish(ctx context.Context, targets ...*components.Component) (bool, error) {
	needRigs, err := r.anyMissing(ctx, targets, (*components.Component).HasRig)
	if err != nil {
		return false, err
	}
	if needRigs {
		ok, err := r.BuildRigs(ctx, targets...)
		if err != nil || !ok {
			return ok, err
		}
	}

	run, err := r.startRun(ctx, "polish", targets, true)
	if err != nil || run == nil {
		return false, err
	}
	ctx = run.ctx

	finish, err := r.hookScope(ctx, run.log, run.components(), polishHooks)
	if err != nil {
		return false, err
	}
	defer finish()

	changed := false
	err = r.buildComponents(ctx, run.order, func(ctx context.Context, comp *components.Component) error {
		did, err := comp.Polish(ctx)
		if err != nil {
			return err
		}
		if did {
			changed = true
		}
		return nil
	})
	ok, err := run.finish(err)
	if err != nil || !ok {
		return false, err
	}
	return changed, nil
}

// buildRun carries the shared state of one pipeline pass: the resolved order,
// the full component population for neighbour lookups, and a logger bound to
// the pass's run ID.
type buildRun struct {
	ctx   context.Context
	log   *slog.Logger
	phase string
	all   []*components.Component
	order []BuildOrderEntry
}

// startRun prepares a pipeline pass: refresh the configuration, reconcile the
// component population and default empty targets to every component. Build
// passes resolve the dependency order, which pulls unbuilt ancestors into
// scope; delete sweeps keep the targets verbatim so removing a foot never
// touches the leg. Returns nil when there is nothing to do.
func (r *Rig) startRun(ctx context.Context, phase string, targets []*components.Component, resolveOrder bool) (*buildRun, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	if err := r.refreshConfiguration(ctx); err != nil {
		return nil, err
	}
	all, err := r.Components(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		targets = all
	}
	if len(targets) == 0 {
		return nil, nil
	}
	var order []BuildOrderEntry
	if resolveOrder {
		parents, err := r.parentMap(ctx, all)
		if err != nil {
			return nil, err
		}
		order = ResolveBuildOrder(targets, parents)
	} else {
		order = make([]BuildOrderEntry, len(targets))
		for i, comp := range targets {
			order[i] = BuildOrderEntry{Component: comp}
		}
	}

	ctx = logging.WithRig(ctx, r.name)
	ctx = logging.WithPhase(ctx, phase)
	ctx = logging.WithRunID(ctx, uuid.NewString())
	log := logging.WithContext(ctx, r.log)
	log.Info("pipeline started", logging.Int("components", len(order)))

	return &buildRun{ctx: ctx, log: log, phase: phase, all: all, order: order}, nil
}

// finish converts the pipeline result into the façade convention: component
// failures are logged and reported as an unsuccessful pass, infrastructure
// errors propagate to the caller.
func (run *buildRun) finish(err error) (bool, error) {
	if err != nil {
		if errors.Is(err, ErrBuildComponentUnknown) {
			run.log.Error("pipeline failed", logging.Error(err))
			return false, nil
		}
		return false, err
	}
	run.log.Info("pipeline finished")
	return true, nil
}

// components returns the live instances of the run's build order.
func (run *buildRun) components() []*components.Component {
	comps := make([]*components.Component, len(run.order))
	for i, entry := range run.order {
		comps[i] = entry.Component
	}
	return comps
}

// buildComponents walks the resolved order and applies build to each entry,
// aborting on the first failure. Failures are wrapped so the pipelines can
// tell a component fault from an infrastructure one.
func (r *Rig) buildComponents(ctx context.Context, order []BuildOrderEntry, build func(context.Context, *components.Component) error) error {
	for _, entry := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := build(ctx, entry.Component); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBuildComponentUnknown, entry.Component.TokenKey(), err)
		}
	}
	return nil
}

// anyMissing reports whether any target (or any component at all, for an
// empty target list) lacks the probed phase.
func (r *Rig) anyMissing(ctx context.Context, targets []*components.Component, has func(*components.Component, context.Context) (bool, error)) (bool, error) {
	probe := targets
	if len(probe) == 0 {
		all, err := r.Components(ctx)
		if err != nil {
			return false, err
		}
		probe = all
	}
	for _, comp := range probe {
		ok, err := has(comp, ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

// activeScripts resolves the configured build-script IDs against the
// registry, skipping unknown IDs with a warning so one stale entry cannot
// block every build.
func (r *Rig) activeScripts() []Script {
	scripts := make([]Script, 0, len(r.config.BuildScripts))
	for _, id := range r.config.BuildScripts {
		script, ok := LookupScript(id)
		if !ok {
			r.log.Warn("unknown build script, skipping",
				logging.String(logging.FieldRig, r.name),
				logging.String(logging.FieldScript, id))
			continue
		}
		scripts = append(scripts, script)
	}
	return scripts
}

// hookScope runs the pre-hooks of the dispatch over every active script and
// returns the closure running the post-hooks. A pre-hook error aborts the
// scope; post-hooks always run for every script and only log their failures,
// a cleanup script cannot fail the build after the components are live.
func (r *Rig) hookScope(ctx context.Context, log *slog.Logger, comps []*components.Component, dispatch hookDispatch) (func(), error) {
	scripts := r.activeScripts()
	if len(scripts) == 0 {
		return func() {}, nil
	}
	props, err := r.scriptProperties(ctx)
	if err != nil {
		return nil, err
	}
	kwargs := map[string]any{"components": comps}

	hookCtx := func(script Script) HookContext {
		return HookContext{Rig: r, Properties: props[script.ID()], Kwargs: kwargs}
	}

	for _, script := range scripts {
		pre := dispatch.pre(script)
		if pre == nil {
			continue
		}
		if err := pre(ctx, hookCtx(script)); err != nil {
			return nil, fmt.Errorf("pre %s hook %q: %w", dispatch.phase, script.ID(), err)
		}
	}

	return func() {
		if dispatch.post == nil {
			return
		}
		for _, script := range scripts {
			post := dispatch.post(script)
			if post == nil {
				continue
			}
			if err := post(ctx, hookCtx(script)); err != nil {
				log.Error("post hook failed",
					logging.String(logging.FieldScript, script.ID()),
					logging.Error(err))
			}
		}
	}, nil
}

// disconnectComponents pins the build targets and every component directly
// parented to one, so constraints into guide nodes that are about to be
// recreated cannot dangle mid-build. The returned closure unpins exactly the
// components this scope pinned; components pinned by the user beforehand stay
// pinned.
func (r *Rig) disconnectComponents(ctx context.Context, run *buildRun) (func(), error) {
	inScope := make(map[descriptor.Identity]bool, len(run.order))
	scope := make([]*components.Component, 0, len(run.order))
	for _, entry := range run.order {
		inScope[entry.Component.Identity()] = true
		scope = append(scope, entry.Component)
	}
	for _, comp := range run.all {
		if inScope[comp.Identity()] {
			continue
		}
		pid, ok := comp.ParentIdentity()
		if !ok || !inScope[pid] {
			continue
		}
		scope = append(scope, comp)
	}

	var pinned []*components.Component
	unpin := func() {
		for _, comp := range pinned {
			if _, err := comp.Unpin(ctx); err != nil {
				run.log.Error("failed to restore pinned connections",
					logging.String(logging.FieldComponent, comp.TokenKey()),
					logging.Error(err))
			}
		}
	}
	for _, comp := range scope {
		did, err := comp.Pin(ctx)
		if err != nil {
			unpin()
			return nil, err
		}
		if did {
			pinned = append(pinned, comp)
		}
	}
	return unpin, nil
}
