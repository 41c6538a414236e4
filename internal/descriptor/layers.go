package descriptor

// Setting is a named value stored on a layer, such as the manualOrient guide
// option or the pin bookkeeping metadata.
type Setting struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Guide is the serializable record for one guide pivot. Guides form a forest
// inside their layer; Parent names another guide in the same component, or is
// empty for the layer root. Transform values are stored verbatim and the
// engine never interprets them beyond the mirror plane flip.
type Guide struct {
	ID         string     `json:"id"`
	Parent     string     `json:"parent,omitempty"`
	Translate  [3]float64 `json:"translate"`
	Rotate     [4]float64 `json:"rotate"`
	Scale      [3]float64 `json:"scale"`
	Shape      string     `json:"shape,omitempty"`
	PivotColor [3]float64 `json:"pivotColor"`
}

// GuideLayer holds the guide records plus their settings and metadata.
type GuideLayer struct {
	Guides   []Guide   `json:"dag,omitempty"`
	Settings []Setting `json:"settings,omitempty"`
	Metadata []Setting `json:"metadata,omitempty"`
}

// Guide returns the guide with the given id, or nil.
func (l *GuideLayer) Guide(id string) *Guide {
	for i := range l.Guides {
		if l.Guides[i].ID == id {
			return &l.Guides[i]
		}
	}
	return nil
}

// HasGuide reports whether a guide with the given id exists in the layer.
func (l *GuideLayer) HasGuide(id string) bool {
	return l.Guide(id) != nil
}

// AddGuide appends a guide record. An existing record with the same id is
// returned unchanged so repeated loads stay idempotent.
func (l *GuideLayer) AddGuide(guide Guide) *Guide {
	if existing := l.Guide(guide.ID); existing != nil {
		return existing
	}
	l.Guides = append(l.Guides, guide)
	return &l.Guides[len(l.Guides)-1]
}

// Setting returns the named layer setting, or nil.
func (l *GuideLayer) Setting(name string) *Setting {
	for i := range l.Settings {
		if l.Settings[i].Name == name {
			return &l.Settings[i]
		}
	}
	return nil
}

// SetSetting overwrites the named setting, appending it when absent.
func (l *GuideLayer) SetSetting(name string, value any) {
	if existing := l.Setting(name); existing != nil {
		existing.Value = value
		return
	}
	l.Settings = append(l.Settings, Setting{Name: name, Value: value})
}

// Joint is the serializable record for one deformation joint. Guide names the
// guide record the joint was generated from; that binding is what lets a
// rebuilt guide layer reposition an existing skeleton.
type Joint struct {
	ID        string     `json:"id"`
	Parent    string     `json:"parent,omitempty"`
	Guide     string     `json:"guide,omitempty"`
	Translate [3]float64 `json:"translate"`
	Rotate    [4]float64 `json:"rotate"`
}

// SkeletonLayer holds the joint records for a component.
type SkeletonLayer struct {
	Joints   []Joint   `json:"dag,omitempty"`
	Settings []Setting `json:"settings,omitempty"`
}

// Joint returns the joint with the given id, or nil.
func (l *SkeletonLayer) Joint(id string) *Joint {
	for i := range l.Joints {
		if l.Joints[i].ID == id {
			return &l.Joints[i]
		}
	}
	return nil
}

// AddJoint appends a joint record, returning the existing one when the id is
// already present.
func (l *SkeletonLayer) AddJoint(joint Joint) *Joint {
	if existing := l.Joint(joint.ID); existing != nil {
		return existing
	}
	l.Joints = append(l.Joints, joint)
	return &l.Joints[len(l.Joints)-1]
}

// Clear removes every joint record.
func (l *SkeletonLayer) Clear() {
	l.Joints = nil
}
