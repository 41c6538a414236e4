package descriptor

import (
	"encoding/json"
	"fmt"
)

// Version is written into every descriptor so later schema changes can
// migrate persisted data.
const Version = "1.0"

// Descriptor is the full serializable record for one component. It is the
// unit persisted on the component's scene node and embedded in templates.
// Name and Side always match the owning component's identity; the engine
// rewrites them on rename, side change, and mirror.
type Descriptor struct {
	Version      string        `json:"descriptorVersion"`
	Type         string        `json:"type"`
	Name         string        `json:"name"`
	Side         string        `json:"side"`
	Parent       string        `json:"parent,omitempty"`
	NamingPreset string        `json:"namingPreset,omitempty"`
	Connections  Connections   `json:"connections"`
	GuideLayer   GuideLayer    `json:"guideLayer"`
	Skeleton     SkeletonLayer `json:"skeletonLayer"`
	SpaceSwitch  []SpaceSwitch `json:"spaceSwitching,omitempty"`
}

// New returns a descriptor for the given type and identity with the current
// schema version stamped.
func New(componentType, name, side string) *Descriptor {
	return &Descriptor{
		Version: Version,
		Type:    componentType,
		Name:    name,
		Side:    side,
	}
}

// Identity returns the component identity recorded in the descriptor.
func (d *Descriptor) Identity() Identity {
	return Identity{Name: d.Name, Side: d.Side}
}

// SetIdentity rewrites the recorded name and side.
func (d *Descriptor) SetIdentity(id Identity) {
	d.Name = id.Name
	d.Side = id.Side
}

// ParentIdentity parses the parent reference. The boolean is false when the
// component is a root.
func (d *Descriptor) ParentIdentity() (Identity, bool) {
	if d.Parent == "" {
		return Identity{}, false
	}
	id, err := ParseIdentity(d.Parent)
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// SetParent records the parent reference. A zero identity clears it.
func (d *Descriptor) SetParent(id Identity) {
	d.Parent = id.String()
}

// Copy returns a deep copy of the descriptor.
func (d *Descriptor) Copy() *Descriptor {
	out := &Descriptor{
		Version:      d.Version,
		Type:         d.Type,
		Name:         d.Name,
		Side:         d.Side,
		Parent:       d.Parent,
		NamingPreset: d.NamingPreset,
		Connections:  d.Connections.Copy(),
	}
	out.GuideLayer = GuideLayer{
		Guides:   append([]Guide(nil), d.GuideLayer.Guides...),
		Settings: append([]Setting(nil), d.GuideLayer.Settings...),
		Metadata: append([]Setting(nil), d.GuideLayer.Metadata...),
	}
	out.Skeleton = SkeletonLayer{
		Joints:   append([]Joint(nil), d.Skeleton.Joints...),
		Settings: append([]Setting(nil), d.Skeleton.Settings...),
	}
	if d.SpaceSwitch != nil {
		out.SpaceSwitch = make([]SpaceSwitch, len(d.SpaceSwitch))
		for i, sw := range d.SpaceSwitch {
			copied := SpaceSwitch{Label: sw.Label, Driven: sw.Driven}
			copied.Drivers = append([]SpaceDriver(nil), sw.Drivers...)
			out.SpaceSwitch[i] = copied
		}
	}
	return out
}

// Template is the descriptor form stored in rig templates: the guide-phase
// data only, with the skeleton layer dropped since a rebuild regenerates it
// from the guides.
type Template struct {
	Version      string        `json:"descriptorVersion"`
	Type         string        `json:"type"`
	Name         string        `json:"name"`
	Side         string        `json:"side"`
	Parent       string        `json:"parent,omitempty"`
	NamingPreset string        `json:"namingPreset,omitempty"`
	Connections  Connections   `json:"connections"`
	GuideLayer   GuideLayer    `json:"guideLayer"`
	SpaceSwitch  []SpaceSwitch `json:"spaceSwitching,omitempty"`
}

// ToTemplate projects the descriptor onto its template form.
func (d *Descriptor) ToTemplate() Template {
	copied := d.Copy()
	return Template{
		Version:      copied.Version,
		Type:         copied.Type,
		Name:         copied.Name,
		Side:         copied.Side,
		Parent:       copied.Parent,
		NamingPreset: copied.NamingPreset,
		Connections:  copied.Connections,
		GuideLayer:   copied.GuideLayer,
		SpaceSwitch:  copied.SpaceSwitch,
	}
}

// FromTemplate reconstructs a descriptor from its template form.
func FromTemplate(t Template) *Descriptor {
	d := &Descriptor{
		Version:      t.Version,
		Type:         t.Type,
		Name:         t.Name,
		Side:         t.Side,
		Parent:       t.Parent,
		NamingPreset: t.NamingPreset,
		Connections:  t.Connections,
		GuideLayer:   t.GuideLayer,
		SpaceSwitch:  t.SpaceSwitch,
	}
	if d.Version == "" {
		d.Version = Version
	}
	return d.Copy()
}

// Marshal renders the descriptor as JSON for node-attribute storage.
func (d *Descriptor) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor %s: %w", d.Identity(), err)
	}
	return data, nil
}

// Unmarshal parses a descriptor from its JSON form, stamping the current
// version when the stored record predates versioning.
func Unmarshal(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor: %w", err)
	}
	if d.Version == "" {
		d.Version = Version
	}
	return &d, nil
}
