package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedReference reports a component or guide reference string that
// does not follow the "name:side" or "name:side:guideId" form.
var ErrMalformedReference = errors.New("malformed component reference")

// Identity names a component within one rig. The pair is unique per rig and
// is the only way components refer to each other; live pointers are never
// persisted.
type Identity struct {
	Name string
	Side string
}

// String renders the identity in its serialized "name:side" form.
func (id Identity) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Name + ":" + id.Side
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id.Name == "" && id.Side == ""
}

// ParseIdentity parses a "name:side" reference.
func ParseIdentity(ref string) (Identity, error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	return Identity{Name: parts[0], Side: parts[1]}, nil
}

// GuideRef addresses one guide on one component, serialized as
// "name:side:guideId". Constraint targets use this form so connections
// survive rename and mirror operations by re-resolving through identities.
type GuideRef struct {
	Name  string
	Side  string
	Guide string
}

// String renders the reference in its serialized "name:side:guideId" form.
func (r GuideRef) String() string {
	return strings.Join([]string{r.Name, r.Side, r.Guide}, ":")
}

// Identity returns the component identity part of the reference.
func (r GuideRef) Identity() Identity {
	return Identity{Name: r.Name, Side: r.Side}
}

// ParseGuideRef parses a "name:side:guideId" reference.
func ParseGuideRef(ref string) (GuideRef, error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return GuideRef{}, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	return GuideRef{Name: parts[0], Side: parts[1], Guide: parts[2]}, nil
}
