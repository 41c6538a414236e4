package descriptor

import (
	"encoding/json"
	"fmt"
)

// Target is one constraint endpoint: a label plus the guide it binds to.
// Serialized as a two-element array ["label", "name:side:guideId"] to match
// the template document format.
type Target struct {
	Label string
	Ref   GuideRef
}

// MarshalJSON renders the target as its label/reference pair.
func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Label, t.Ref.String()})
}

// UnmarshalJSON parses the label/reference pair form.
func (t *Target) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("constraint target: %w", err)
	}
	ref, err := ParseGuideRef(pair[1])
	if err != nil {
		return fmt.Errorf("constraint target: %w", err)
	}
	t.Label = pair[0]
	t.Ref = ref
	return nil
}

// Constraint describes one connection rule between this component's guides
// and guides on other components.
type Constraint struct {
	Type       string         `json:"type"`
	Kwargs     map[string]any `json:"kwargs,omitempty"`
	Controller string         `json:"controller,omitempty"`
	Targets    []Target       `json:"targets"`
}

// Connections groups the constraint rules for a component. ID names the
// guide the constraints anchor to, conventionally "root".
type Connections struct {
	ID          string       `json:"id,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// IsZero reports whether no constraints are recorded.
func (c Connections) IsZero() bool {
	return len(c.Constraints) == 0
}

// Copy returns a deep copy.
func (c Connections) Copy() Connections {
	out := Connections{ID: c.ID}
	if c.Constraints == nil {
		return out
	}
	out.Constraints = make([]Constraint, len(c.Constraints))
	for i, constraint := range c.Constraints {
		copied := Constraint{
			Type:       constraint.Type,
			Controller: constraint.Controller,
			Targets:    append([]Target(nil), constraint.Targets...),
		}
		if constraint.Kwargs != nil {
			copied.Kwargs = make(map[string]any, len(constraint.Kwargs))
			for k, v := range constraint.Kwargs {
				copied.Kwargs[k] = v
			}
		}
		out.Constraints[i] = copied
	}
	return out
}

// RemapTargets rewrites every constraint target through the supplied mapping.
// The mapping returns the replacement reference and true to rewrite, or false
// to leave the target untouched. Used by the duplicate and mirror engines to
// repoint in-batch references at the cloned components.
func (c *Connections) RemapTargets(remap func(GuideRef) (GuideRef, bool)) {
	for i := range c.Constraints {
		targets := c.Constraints[i].Targets
		for j, target := range targets {
			if mapped, ok := remap(target.Ref); ok {
				targets[j] = Target{Label: target.Label, Ref: mapped}
			}
		}
	}
}

// ReferencedIdentities returns each distinct component identity named by the
// constraint targets, in first-reference order.
func (c Connections) ReferencedIdentities() []Identity {
	var ordered []Identity
	seen := make(map[Identity]struct{})
	for _, constraint := range c.Constraints {
		for _, target := range constraint.Targets {
			id := target.Ref.Identity()
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}
	return ordered
}
