package rig

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"armature/internal/components"
	"armature/internal/config"
	"armature/internal/descriptor"
	"armature/internal/logging"
	"armature/internal/naming"
	"armature/internal/scene"
	"armature/internal/template"
)

// EngineVersion is stamped onto new rig roots and into saved templates so
// later schema changes can migrate persisted rigs.
const EngineVersion = "1.0.0"

// Rig is the build-orchestration façade for one character rig inside a scene.
// It owns the component cache, resolves build order, runs the phase pipelines
// with their hook scopes, and round-trips the rig through templates.
//
// A Rig drives at most one persisted root at a time; StartSession binds or
// creates it. Calls are synchronous and single-threaded by contract, the
// scene store's file lock enforces the single-process assumption underneath.
type Rig struct {
	store      *scene.Store
	processCfg *config.Config
	templates  *template.Manager
	log        *slog.Logger

	name   string
	root   scene.NodeID
	layer  scene.NodeID
	preset *naming.Preset
	config Configuration
	cache  *componentCache
}

// Options configures New.
type Options struct {
	Store *scene.Store
	// Config supplies the process defaults seeded into new rig sessions.
	// Nil falls back to the repository defaults.
	Config *config.Config
	// Templates is the manager used by SaveTemplate and LoadTemplate. May be
	// nil when template operations are not needed.
	Templates *template.Manager
	Logger    *slog.Logger
}

// New returns a rig façade over the given scene store. No session is active
// until StartSession.
func New(opts Options) *Rig {
	cfg := opts.Config
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Rig{
		store:      opts.Store,
		processCfg: cfg,
		templates:  opts.Templates,
		log:        logging.NewScopedLogger(log, "rig"),
		preset:     naming.Default(),
		config:     NewConfiguration(cfg),
		cache:      newComponentCache(),
	}
}

// StartSession binds the façade to the persisted rig of the given name,
// creating root, components layer and the standard selection sets when no such
// rig exists yet. Binding refreshes the Configuration from the root's cached
// JSON. Starting a session replaces any previously active one.
func (r *Rig) StartSession(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("start session: rig name is empty")
	}

	roots, err := r.store.NodesByKind(ctx, components.NodeKindRigRoot)
	if err != nil {
		return fmt.Errorf("start session %q: %w", name, err)
	}
	for _, node := range roots {
		rigName, err := r.store.AttrString(ctx, node.ID, components.AttrRigName)
		if err != nil {
			return fmt.Errorf("start session %q: %w", name, err)
		}
		if rigName == name {
			return r.bindSession(ctx, node.ID, name)
		}
	}
	return r.createSession(ctx, name)
}

func (r *Rig) bindSession(ctx context.Context, root scene.NodeID, name string) error {
	r.name = name
	r.root = root
	r.cache.clear()

	if err := r.refreshConfiguration(ctx); err != nil {
		return err
	}

	layers, err := r.store.ChildrenByKind(ctx, root, components.NodeKindComponentsLayer)
	if err != nil {
		return fmt.Errorf("bind session %q: %w", name, err)
	}
	if len(layers) > 0 {
		r.layer = layers[0].ID
	} else {
		// A root without its components layer is a damaged scene; recreate
		// the layer rather than failing every later call.
		layer, err := r.createRigLayer(ctx, components.NodeKindComponentsLayer, "components")
		if err != nil {
			return err
		}
		r.layer = layer
	}

	r.log.Info("session bound",
		logging.String(logging.FieldRig, name),
		logging.String(logging.FieldNode, string(root)))
	return nil
}

func (r *Rig) createSession(ctx context.Context, name string) error {
	r.name = name
	r.config = NewConfiguration(r.processCfg)
	r.applyPreset()
	r.cache.clear()

	rootName, err := r.preset.Resolve(naming.RuleRigRoot, naming.Fields{"rig": name})
	if err != nil {
		return fmt.Errorf("create session %q: %w", name, err)
	}
	root, err := r.store.CreateNode(ctx, components.NodeKindRigRoot, rootName)
	if err != nil {
		return fmt.Errorf("create session %q: %w", name, err)
	}
	r.root = root.ID

	attrs := map[string]any{
		components.AttrIsRig:      true,
		components.AttrRigName:    name,
		components.AttrRigVersion: EngineVersion,
	}
	if err := r.store.SetAttrs(ctx, root.ID, attrs); err != nil {
		return fmt.Errorf("create session %q: %w", name, err)
	}

	layer, err := r.createRigLayer(ctx, components.NodeKindComponentsLayer, "components")
	if err != nil {
		return err
	}
	r.layer = layer

	for _, set := range []string{"root", "controls", "skeleton"} {
		setName, err := r.preset.Resolve(naming.RuleSelectionSet, naming.Fields{"rig": name, "set": set})
		if err != nil {
			return fmt.Errorf("create session %q: %w", name, err)
		}
		node, err := r.store.CreateChildNode(ctx, components.NodeKindSelectionSet, setName, root.ID)
		if err != nil {
			return fmt.Errorf("create session %q: %w", name, err)
		}
		if err := r.store.SetAttr(ctx, node.ID, components.AttrID, set); err != nil {
			return fmt.Errorf("create session %q: %w", name, err)
		}
	}

	if err := r.saveConfiguration(ctx); err != nil {
		return err
	}

	r.log.Info("session created",
		logging.String(logging.FieldRig, name),
		logging.String(logging.FieldNode, string(root.ID)))
	return nil
}

// Exists reports whether the façade is bound to a live persisted root.
func (r *Rig) Exists(ctx context.Context) (bool, error) {
	if r.root == "" {
		return false, nil
	}
	return r.store.NodeExists(ctx, r.root)
}

// Name returns the rig name of the active session, empty before one starts.
func (r *Rig) Name() string { return r.name }

// Root returns the persisted root handle, empty before a session starts.
func (r *Rig) Root() scene.NodeID { return r.root }

// ComponentsLayer returns the node every component meta node lives under.
func (r *Rig) ComponentsLayer() scene.NodeID { return r.layer }

// Preset returns the active naming preset.
func (r *Rig) Preset() *naming.Preset { return r.preset }

// Configuration returns a copy of the rig configuration.
func (r *Rig) Configuration() Configuration {
	out := r.config
	out.BuildScripts = append([]string(nil), r.config.BuildScripts...)
	return out
}

// SetConfiguration replaces the rig configuration and persists it on the
// root.
func (r *Rig) SetConfiguration(ctx context.Context, cfg Configuration) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	r.config = cfg
	r.applyPreset()
	return r.saveConfiguration(ctx)
}

// Rename renames the rig: the root attribute plus the root, layer and
// selection-set nodes through the naming preset. Component nodes keep their
// names, they never embed the rig name.
func (r *Rig) Rename(ctx context.Context, name string) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename rig %q: empty name", r.name)
	}

	if err := r.store.SetAttr(ctx, r.root, components.AttrRigName, name); err != nil {
		return fmt.Errorf("rename rig %q: %w", r.name, err)
	}
	previous := r.name
	r.name = name

	rootName, err := r.preset.Resolve(naming.RuleRigRoot, naming.Fields{"rig": name})
	if err != nil {
		return err
	}
	if err := r.store.RenameNode(ctx, r.root, rootName); err != nil {
		return fmt.Errorf("rename rig %q: %w", previous, err)
	}

	layers := []struct{ kind, token string }{
		{components.NodeKindComponentsLayer, "components"},
		{components.NodeKindSkeletonLayer, "skeleton"},
		{components.NodeKindGeometryLayer, "geometry"},
	}
	for _, l := range layers {
		nodes, err := r.store.ChildrenByKind(ctx, r.root, l.kind)
		if err != nil {
			return err
		}
		for _, node := range nodes {
			layerName, err := r.preset.Resolve(naming.RuleRigLayer, naming.Fields{"rig": name, "layer": l.token})
			if err != nil {
				return err
			}
			if err := r.store.RenameNode(ctx, node.ID, layerName); err != nil {
				return fmt.Errorf("rename rig %q: %w", previous, err)
			}
		}
	}

	sets, err := r.store.ChildrenByKind(ctx, r.root, components.NodeKindSelectionSet)
	if err != nil {
		return err
	}
	for _, node := range sets {
		token, err := r.store.AttrString(ctx, node.ID, components.AttrID)
		if err != nil {
			return err
		}
		if token == "" {
			continue
		}
		setName, err := r.preset.Resolve(naming.RuleSelectionSet, naming.Fields{"rig": name, "set": token})
		if err != nil {
			return err
		}
		if err := r.store.RenameNode(ctx, node.ID, setName); err != nil {
			return fmt.Errorf("rename rig %q: %w", previous, err)
		}
	}

	r.log.Info("rig renamed",
		logging.String(logging.FieldRig, name),
		logging.String("previous", previous))
	return nil
}

// CreateComponent instantiates a component of the registered type under the
// components layer and caches it. Identity collisions are resolved by
// suffixing the name with the smallest unused number on the requested side.
func (r *Rig) CreateComponent(ctx context.Context, typeTag, name, side string) (*components.Component, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	kind, ok := components.LookupKind(typeTag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingComponentType, typeTag)
	}

	desc := kind.NewDescriptor()
	if name == "" {
		name = desc.Name
	}
	if name == "" {
		name = typeTag
	}
	if side == "" {
		side = desc.Side
	}
	if side == "" {
		side = "M"
	}
	unique, err := r.uniqueComponentName(ctx, name, side)
	if err != nil {
		return nil, err
	}
	desc.Name = unique
	desc.Side = side

	comp, err := components.Create(ctx, components.CreateOptions{
		Store:      r.store,
		Preset:     r.preset,
		Logger:     r.log,
		Layer:      r.layer,
		Kind:       kind,
		Descriptor: desc,
	})
	if err != nil {
		return nil, err
	}
	r.cache.put(comp)

	r.log.Info("component created",
		logging.String(logging.FieldRig, r.name),
		logging.String(logging.FieldComponent, comp.TokenKey()),
		logging.String(logging.FieldKind, typeTag))
	return comp, nil
}

// Component returns the live instance for the identity, consulting the cache
// first and scanning the persisted layer on a miss. Returns (nil, nil) when
// no such component exists.
func (r *Rig) Component(ctx context.Context, name, side string) (*components.Component, error) {
	id := descriptor.Identity{Name: name, Side: side}
	if comp, ok := r.cache.get(id); ok {
		return comp, nil
	}
	if r.root == "" {
		return nil, nil
	}
	nodes, err := r.store.ChildrenByKind(ctx, r.layer, components.NodeKindComponent)
	if err != nil {
		return nil, fmt.Errorf("find component %s in %q: %w", id, r.name, err)
	}
	for _, node := range nodes {
		gotName, err := r.store.AttrString(ctx, node.ID, components.AttrName)
		if err != nil {
			return nil, err
		}
		if gotName != name {
			continue
		}
		gotSide, err := r.store.AttrString(ctx, node.ID, components.AttrSide)
		if err != nil {
			return nil, err
		}
		if gotSide != side {
			continue
		}
		return r.attach(ctx, node.ID)
	}
	return nil, nil
}

// HasComponent reports whether the identity resolves to a component.
func (r *Rig) HasComponent(ctx context.Context, name, side string) (bool, error) {
	comp, err := r.Component(ctx, name, side)
	if err != nil {
		return false, err
	}
	return comp != nil, nil
}

// Components reconciles the cache against the persisted components layer and
// returns every component: stale cache entries whose node is gone are
// dropped, persisted components without a live instance are attached. The
// result never contains an identity twice; an instantiation failure aborts
// the enumeration with ErrInitializeComponent.
func (r *Rig) Components(ctx context.Context) ([]*components.Component, error) {
	if r.root == "" {
		return nil, nil
	}
	for _, comp := range r.cache.list() {
		exists, err := comp.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			r.cache.remove(comp.Identity())
		}
	}
	nodes, err := r.store.ChildrenByKind(ctx, r.layer, components.NodeKindComponent)
	if err != nil {
		return nil, fmt.Errorf("list components of %q: %w", r.name, err)
	}
	for _, node := range nodes {
		if _, ok := r.cache.byNode(node.ID); ok {
			continue
		}
		if _, err := r.attach(ctx, node.ID); err != nil {
			return nil, err
		}
	}
	return r.cache.list(), nil
}

// IterateComponents walks every component in cache order after reconciling.
// Returning false from fn stops the walk.
func (r *Rig) IterateComponents(ctx context.Context, fn func(*components.Component) bool) error {
	comps, err := r.Components(ctx)
	if err != nil {
		return err
	}
	for _, comp := range comps {
		if !fn(comp) {
			return nil
		}
	}
	return nil
}

// IterateRootComponents walks the components that declare no parent.
func (r *Rig) IterateRootComponents(ctx context.Context, fn func(*components.Component) bool) error {
	return r.IterateComponents(ctx, func(comp *components.Component) bool {
		if _, ok := comp.ParentIdentity(); ok {
			return true
		}
		return fn(comp)
	})
}

// ComponentsByType returns the components whose type tag matches.
func (r *Rig) ComponentsByType(ctx context.Context, typeTag string) ([]*components.Component, error) {
	comps, err := r.Components(ctx)
	if err != nil {
		return nil, err
	}
	matched := comps[:0:0]
	for _, comp := range comps {
		if comp.TypeName() == typeTag {
			matched = append(matched, comp)
		}
	}
	return matched, nil
}

// ComponentFromNode resolves the component owning an arbitrary scene node by
// walking up to its meta node. Fails with ErrMissingMetaNode when the walk
// reaches a root without crossing one.
func (r *Rig) ComponentFromNode(ctx context.Context, node scene.NodeID) (*components.Component, error) {
	current := node
	for current != "" {
		n, err := r.store.Node(ctx, current)
		if err != nil {
			return nil, err
		}
		if n == nil {
			break
		}
		if n.Kind == components.NodeKindComponent {
			if comp, ok := r.cache.byNode(n.ID); ok {
				return comp, nil
			}
			return r.attach(ctx, n.ID)
		}
		parent, err := r.store.Parent(ctx, current)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		current = parent.ID
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingMetaNode, node)
}

// ClearComponentCache drops every live instance. The next lookup re-attaches
// from the persisted layer.
func (r *Rig) ClearComponentCache() {
	dropped := r.cache.len()
	r.cache.clear()
	r.log.Debug("component cache cleared", logging.Int("dropped", dropped))
}

// RenameComponent renames a component and re-keys its cache entry.
func (r *Rig) RenameComponent(ctx context.Context, comp *components.Component, name string) error {
	old := comp.Identity()
	if err := comp.Rename(ctx, name); err != nil {
		return err
	}
	r.cache.rekey(old, comp)
	return nil
}

// SetComponentSide moves a component to another side and re-keys its cache
// entry.
func (r *Rig) SetComponentSide(ctx context.Context, comp *components.Component, side string) error {
	old := comp.Identity()
	if err := comp.SetSide(ctx, side); err != nil {
		return err
	}
	r.cache.rekey(old, comp)
	return nil
}

// BuildState derives the rig's build progress by probing the first component:
// its highest completed phase stands in for the whole rig. Rigs are built and
// torn down as a unit, so the shortcut holds in practice; mixed-phase rigs
// report whatever their first component reached.
func (r *Rig) BuildState(ctx context.Context) (BuildState, error) {
	comps, err := r.Components(ctx)
	if err != nil {
		return StateNotBuilt, err
	}
	if len(comps) == 0 {
		return StateNotBuilt, nil
	}
	probe := comps[0]
	checks := []struct {
		state BuildState
		has   func(context.Context) (bool, error)
	}{
		{StatePolished, probe.HasPolished},
		{StateRig, probe.HasRig},
		{StateSkeleton, probe.HasSkeleton},
		{StateControlVisibility, probe.HasGuideControls},
		{StateGuides, probe.HasGuide},
	}
	for _, check := range checks {
		ok, err := check.has(ctx)
		if err != nil {
			return StateNotBuilt, err
		}
		if ok {
			return check.state, nil
		}
	}
	return StateNotBuilt, nil
}

// BuildScriptConfig returns the persisted properties for one build script,
// nil when the script has none.
func (r *Rig) BuildScriptConfig(ctx context.Context, scriptID string) (map[string]any, error) {
	props, err := r.scriptProperties(ctx)
	if err != nil {
		return nil, err
	}
	return props[scriptID], nil
}

// SetBuildScriptConfig replaces the persisted properties for one build
// script. Empty properties remove the script's entry.
func (r *Rig) SetBuildScriptConfig(ctx context.Context, scriptID string, properties map[string]any) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	props, err := r.scriptProperties(ctx)
	if err != nil {
		return err
	}
	if len(properties) == 0 {
		delete(props, scriptID)
	} else {
		props[scriptID] = properties
	}
	if err := r.store.SetAttr(ctx, r.root, components.AttrBuildScriptConfig, props); err != nil {
		return fmt.Errorf("save build script config for %q: %w", r.name, err)
	}
	return nil
}

// scriptProperties reads the per-script property table cached on the root.
func (r *Rig) scriptProperties(ctx context.Context) (map[string]map[string]any, error) {
	props := make(map[string]map[string]any)
	if r.root == "" {
		return props, nil
	}
	if _, err := r.store.AttrJSON(ctx, r.root, components.AttrBuildScriptConfig, &props); err != nil {
		return nil, fmt.Errorf("read build script config for %q: %w", r.name, err)
	}
	return props, nil
}

func (r *Rig) requireSession() error {
	if r.root == "" {
		return fmt.Errorf("no active rig session")
	}
	return nil
}

// refreshConfiguration re-reads the configuration JSON cached on the root.
// A root without the attribute keeps the current values.
func (r *Rig) refreshConfiguration(ctx context.Context) error {
	if r.root == "" {
		return nil
	}
	var stored Configuration
	found, err := r.store.AttrJSON(ctx, r.root, components.AttrConfiguration, &stored)
	if err != nil {
		return fmt.Errorf("refresh configuration for %q: %w", r.name, err)
	}
	if !found {
		return nil
	}
	r.config = stored
	r.applyPreset()
	return nil
}

func (r *Rig) saveConfiguration(ctx context.Context) error {
	if err := r.store.SetAttr(ctx, r.root, components.AttrConfiguration, r.config); err != nil {
		return fmt.Errorf("save configuration for %q: %w", r.name, err)
	}
	return nil
}

// applyPreset resolves the configured naming preset, keeping the previous one
// when the name is unknown so a bad template cannot leave the rig nameless.
func (r *Rig) applyPreset() {
	if r.config.NamingPreset == "" {
		return
	}
	preset, err := naming.Find(r.config.NamingPreset)
	if err != nil {
		r.log.Warn("unknown naming preset, keeping current",
			logging.String(logging.FieldRig, r.name),
			logging.String("preset", r.config.NamingPreset))
		return
	}
	r.preset = preset
}

// attach wraps a persisted component node and caches it.
func (r *Rig) attach(ctx context.Context, node scene.NodeID) (*components.Component, error) {
	comp, err := components.Attach(ctx, components.AttachOptions{
		Store:  r.store,
		Preset: r.preset,
		Logger: r.log,
		Node:   node,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: %v", ErrInitializeComponent, node, err)
	}
	r.cache.put(comp)
	return comp, nil
}

// uniqueComponentName finds the smallest free name on the given side,
// starting from base.
func (r *Rig) uniqueComponentName(ctx context.Context, base, side string) (string, error) {
	comps, err := r.Components(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(comps))
	for _, comp := range comps {
		if comp.Side() == side {
			taken[comp.Name()] = true
		}
	}
	return naming.UniqueName(base, func(candidate string) bool {
		return taken[candidate]
	}), nil
}

// createRigLayer creates a rig-level layer node under the root.
func (r *Rig) createRigLayer(ctx context.Context, kind, token string) (scene.NodeID, error) {
	name, err := r.preset.Resolve(naming.RuleRigLayer, naming.Fields{"rig": r.name, "layer": token})
	if err != nil {
		return "", fmt.Errorf("create %s layer for %q: %w", token, r.name, err)
	}
	node, err := r.store.CreateChildNode(ctx, kind, name, r.root)
	if err != nil {
		return "", fmt.Errorf("create %s layer for %q: %w", token, r.name, err)
	}
	return node.ID, nil
}

// ensureRigLayer returns the rig-level layer of the given kind, creating it
// on first use. The skeleton and geometry layers appear lazily this way when
// their phases first run.
func (r *Rig) ensureRigLayer(ctx context.Context, kind, token string) (scene.NodeID, error) {
	existing, err := r.store.ChildrenByKind(ctx, r.root, kind)
	if err != nil {
		return "", fmt.Errorf("find %s layer for %q: %w", token, r.name, err)
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}
	return r.createRigLayer(ctx, kind, token)
}

// parentMap resolves every component's declared parent through the cache
// arena. Identities that do not resolve to a live component map to nil, the
// resolver treats those components as roots.
func (r *Rig) parentMap(ctx context.Context, comps []*components.Component) (map[descriptor.Identity]*components.Component, error) {
	parents := make(map[descriptor.Identity]*components.Component, len(comps))
	for _, comp := range comps {
		parents[comp.Identity()] = nil
		pid, ok := comp.ParentIdentity()
		if !ok {
			continue
		}
		parent, err := r.Component(ctx, pid.Name, pid.Side)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			parents[comp.Identity()] = parent
		}
	}
	return parents, nil
}
