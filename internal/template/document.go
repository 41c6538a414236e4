package template

import (
	"fmt"
	"strings"

	"armature/internal/descriptor"
)

// Document is the serialized form of a rig. It carries everything needed to
// recreate the rig's components in a fresh scene: guide-level descriptors in
// build order plus the configuration the rig was authored with.
type Document struct {
	Name            string                `json:"name"`
	ArmatureVersion string                `json:"armatureVersion"`
	Components      []descriptor.Template `json:"components"`
	Config          map[string]any        `json:"config,omitempty"`
}

// Validate reports whether the document can be applied to a scene.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("template document is nil")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("template document has no name")
	}
	if len(d.Components) == 0 {
		return fmt.Errorf("template %q has no components", d.Name)
	}
	return nil
}
