package rig

import (
	"context"
	"fmt"

	"armature/internal/components"
	"armature/internal/descriptor"
	"armature/internal/logging"
	"armature/internal/template"
)

// SerializeFromScene captures the whole rig as a template document: every
// component's persisted descriptor in dependency order plus the rig
// configuration. Components serialize in build order so applying the document
// always creates parents before the components referencing them.
func (r *Rig) SerializeFromScene(ctx context.Context) (*template.Document, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	if err := r.refreshConfiguration(ctx); err != nil {
		return nil, err
	}
	comps, err := r.Components(ctx)
	if err != nil {
		return nil, err
	}
	parents, err := r.parentMap(ctx, comps)
	if err != nil {
		return nil, err
	}
	order := ResolveBuildOrder(comps, parents)

	templates := make([]descriptor.Template, 0, len(order))
	for _, entry := range order {
		desc, err := entry.Component.SerializeFromScene(ctx)
		if err != nil {
			return nil, err
		}
		templates = append(templates, desc.ToTemplate())
	}
	props, err := r.scriptProperties(ctx)
	if err != nil {
		return nil, err
	}

	return &template.Document{
		Name:            r.name,
		ArmatureVersion: EngineVersion,
		Components:      templates,
		Config:          r.config.Serialize(props),
	}, nil
}

// SaveTemplate serializes the rig and stores it through the template manager.
// An empty name keeps the rig name. Returns the path written.
func (r *Rig) SaveTemplate(ctx context.Context, name string) (string, error) {
	if r.templates == nil {
		return "", fmt.Errorf("save template: no template manager configured")
	}
	doc, err := r.SerializeFromScene(ctx)
	if err != nil {
		return "", err
	}
	if name != "" {
		doc.Name = name
	}
	path, err := r.templates.Save(doc)
	if err != nil {
		return "", err
	}
	r.log.Info("template saved",
		logging.String(logging.FieldRig, r.name),
		logging.String(logging.FieldTemplate, doc.Name),
		logging.String("path", path))
	return path, nil
}

// LoadTemplate resolves the named template through the manager and applies it
// to the active session.
func (r *Rig) LoadTemplate(ctx context.Context, name string) ([]*components.Component, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("load template: no template manager configured")
	}
	doc, err := r.templates.Load(name)
	if err != nil {
		return nil, err
	}
	return r.ApplyTemplate(ctx, doc)
}

// ApplyTemplate recreates the document's components in the active session and
// builds their guides. Identities colliding with existing components are
// suffixed, with in-document parent and constraint references following the
// renamed copies. The document's config block merges into the rig
// configuration before any component is created, so the build already runs
// with the template's naming preset and scripts.
func (r *Rig) ApplyTemplate(ctx context.Context, doc *template.Document) ([]*components.Component, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := r.applyTemplateConfig(ctx, doc.Config); err != nil {
		return nil, err
	}

	created := make([]*components.Component, 0, len(doc.Components))
	mapping := make(map[descriptor.Identity]*components.Component, len(doc.Components))
	for _, entry := range doc.Components {
		desc := descriptor.FromTemplate(entry)
		kind, ok := components.LookupKind(desc.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingComponentType, desc.Type)
		}
		source := desc.Identity()
		unique, err := r.uniqueComponentName(ctx, desc.Name, desc.Side)
		if err != nil {
			return nil, err
		}
		desc.SetIdentity(descriptor.Identity{Name: unique, Side: desc.Side})

		comp, err := components.Create(ctx, components.CreateOptions{
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
		r.cache.put(comp)
		mapping[source] = comp
		created = append(created, comp)
	}

	for _, comp := range created {
		if err := r.remapBatchReferences(ctx, comp, mapping); err != nil {
			return nil, err
		}
	}

	r.log.Info("template applied",
		logging.String(logging.FieldRig, r.name),
		logging.String(logging.FieldTemplate, doc.Name),
		logging.Int("components", len(created)))

	if _, err := r.BuildGuides(ctx, created...); err != nil {
		return nil, err
	}
	return created, nil
}

// applyTemplateConfig merges a template's config block into the rig
// configuration. Only keys present in the block override; the guide
// visibility switches never appear in templates, they are session state.
func (r *Rig) applyTemplateConfig(ctx context.Context, cfg map[string]any) error {
	if len(cfg) == 0 {
		return nil
	}
	updated := r.Configuration()

	if v, ok := cfg["autoAlignGuides"].(bool); ok {
		updated.AutoAlignGuides = v
	}
	if v, ok := cfg["useProxyAttributes"].(bool); ok {
		updated.UseProxyAttributes = v
	}
	if v, ok := cfg["useContainers"].(bool); ok {
		updated.UseContainers = v
	}
	if v, ok := cfg["namingPreset"].(string); ok && v != "" {
		updated.NamingPreset = v
	}
	if raw, ok := cfg["buildScripts"]; ok {
		ids, props, err := parseBuildScripts(raw)
		if err != nil {
			return err
		}
		updated.BuildScripts = ids
		for id, p := range props {
			if len(p) == 0 {
				continue
			}
			if err := r.SetBuildScriptConfig(ctx, id, p); err != nil {
				return err
			}
		}
	}
	return r.SetConfiguration(ctx, updated)
}
