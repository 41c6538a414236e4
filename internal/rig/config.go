package rig

import (
	"fmt"

	"armature/internal/config"
)

// Configuration is the rig-wide settings record, cached as JSON on the rig's
// persisted root node. Pipeline calls refresh it from the root before running
// so edits made by another session against the same scene are honored. New
// sessions seed it from the process configuration.
type Configuration struct {
	GuidePivotVisibility   bool     `json:"guidePivotVisibility"`
	GuideControlVisibility bool     `json:"guideControlVisibility"`
	AutoAlignGuides        bool     `json:"autoAlignGuides"`
	UseProxyAttributes     bool     `json:"useProxyAttributes"`
	UseContainers          bool     `json:"useContainers"`
	NamingPreset           string   `json:"namingPreset,omitempty"`
	BuildScripts           []string `json:"buildScripts,omitempty"`
}

// NewConfiguration seeds a rig configuration from the process defaults.
func NewConfiguration(cfg *config.Config) Configuration {
	return Configuration{
		GuidePivotVisibility:   cfg.Build.GuidePivotVisibility,
		GuideControlVisibility: cfg.Build.GuideControlVisibility,
		AutoAlignGuides:        cfg.Build.AutoAlignGuides,
		UseProxyAttributes:     cfg.Build.UseProxyAttributes,
		UseContainers:          cfg.Build.UseContainers,
		NamingPreset:           cfg.Naming.Preset,
		BuildScripts:           append([]string(nil), cfg.Build.BuildScripts...),
	}
}

// Serialize renders the configuration for template embedding. The two guide
// visibility switches are session state rather than rig data and are
// stripped. Build scripts serialize as [id, properties] pairs so a template
// carries the per-script settings alongside the script order.
func (c Configuration) Serialize(scriptProperties map[string]map[string]any) map[string]any {
	out := map[string]any{
		"autoAlignGuides":    c.AutoAlignGuides,
		"useProxyAttributes": c.UseProxyAttributes,
		"useContainers":      c.UseContainers,
	}
	if c.NamingPreset != "" {
		out["namingPreset"] = c.NamingPreset
	}
	if len(c.BuildScripts) > 0 {
		scripts := make([]any, 0, len(c.BuildScripts))
		for _, id := range c.BuildScripts {
			props := scriptProperties[id]
			if props == nil {
				props = map[string]any{}
			}
			scripts = append(scripts, []any{id, props})
		}
		out["buildScripts"] = scripts
	}
	return out
}

// parseBuildScripts accepts both template forms of the buildScripts entry: a
// plain list of script IDs and the serialized [id, properties] pairs.
func parseBuildScripts(value any) ([]string, map[string]map[string]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("buildScripts: expected a list, got %T", value)
	}
	ids := make([]string, 0, len(list))
	props := make(map[string]map[string]any)
	for _, item := range list {
		switch entry := item.(type) {
		case string:
			ids = append(ids, entry)
		case []any:
			if len(entry) == 0 {
				continue
			}
			id, ok := entry[0].(string)
			if !ok {
				return nil, nil, fmt.Errorf("buildScripts: script id must be a string, got %T", entry[0])
			}
			ids = append(ids, id)
			if len(entry) > 1 {
				if table, ok := entry[1].(map[string]any); ok && len(table) > 0 {
					props[id] = table
				}
			}
		default:
			return nil, nil, fmt.Errorf("buildScripts: unsupported entry %T", item)
		}
	}
	return ids, props, nil
}
