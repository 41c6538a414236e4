package descriptor

// SpaceDriver names one driver entry of a space switch.
type SpaceDriver struct {
	Label  string `json:"label"`
	Driver string `json:"driver"`
}

// SpaceSwitch records one space-switch setup on a component: the driven
// control plus the components driving it. Deletion bookkeeping walks these
// records to unregister a removed component from its dependents.
type SpaceSwitch struct {
	Label   string        `json:"label"`
	Driven  string        `json:"driven,omitempty"`
	Drivers []SpaceDriver `json:"drivers,omitempty"`
}

// ReferencesComponent reports whether any driver names the given identity.
func (s SpaceSwitch) ReferencesComponent(id Identity) bool {
	for _, driver := range s.Drivers {
		ref, err := ParseGuideRef(driver.Driver)
		if err == nil && ref.Identity() == id {
			return true
		}
		parsed, err := ParseIdentity(driver.Driver)
		if err == nil && parsed == id {
			return true
		}
	}
	return false
}

// WithoutComponent returns the switch with every driver naming the given
// identity removed.
func (s SpaceSwitch) WithoutComponent(id Identity) SpaceSwitch {
	out := SpaceSwitch{Label: s.Label, Driven: s.Driven}
	for _, driver := range s.Drivers {
		ref, err := ParseGuideRef(driver.Driver)
		if err == nil && ref.Identity() == id {
			continue
		}
		parsed, err := ParseIdentity(driver.Driver)
		if err == nil && parsed == id {
			continue
		}
		out.Drivers = append(out.Drivers, driver)
	}
	return out
}
