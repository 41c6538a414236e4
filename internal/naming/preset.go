package naming

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownPreset indicates that no preset is registered under the
	// requested name.
	ErrUnknownPreset = errors.New("unknown naming preset")
	// ErrUnknownRule indicates that a preset has no template for the
	// requested rule.
	ErrUnknownRule = errors.New("unknown naming rule")
	// ErrMissingField indicates that a rule template references a token the
	// caller did not supply a value for.
	ErrMissingField = errors.New("missing naming field")
)

// Fields supplies values for the tokens a rule template references.
type Fields map[string]string

// Preset bundles rule templates and token tables under a single name.
type Preset struct {
	Name   string
	Rules  map[string]string
	Tokens map[string]map[string]string
}

// Rule names shared by every preset. Components and the rig façade resolve
// node names exclusively through these, so a preset swap renames the whole
// scene graph consistently.
const (
	RuleRigRoot        = "rigRoot"
	RuleRigMeta        = "rigMeta"
	RuleRigLayer       = "rigLayer"
	RuleComponentRoot  = "componentRoot"
	RuleComponentMeta  = "componentMeta"
	RuleComponentLayer = "componentLayer"
	RuleGuide          = "guide"
	RuleJoint          = "joint"
	RuleControl        = "control"
	RuleSettingsNode   = "settings"
	RuleSelectionSet   = "selectionSet"
)

var presets = map[string]*Preset{
	"standard": {
		Name: "standard",
		Rules: map[string]string{
			RuleRigRoot:        "{rig}_rig",
			RuleRigMeta:        "{rig}_meta",
			RuleRigLayer:       "{rig}_{layer}_hrc",
			RuleComponentRoot:  "{component}_{side}_hrc",
			RuleComponentMeta:  "{component}_{side}_meta",
			RuleComponentLayer: "{component}_{side}_{layer}_hrc",
			RuleGuide:          "{component}_{side}_{id}_guide",
			RuleJoint:          "{component}_{side}_{id}_jnt",
			RuleControl:        "{component}_{side}_{id}_ctrl",
			RuleSettingsNode:   "{component}_{side}_{section}_settings",
			RuleSelectionSet:   "{rig}_{set}_set",
		},
		Tokens: map[string]map[string]string{
			"side": {
				"left":   "L",
				"right":  "R",
				"middle": "M",
				"center": "M",
			},
			"sideSymmetry": {
				"L":     "R",
				"R":     "L",
				"left":  "right",
				"right": "left",
			},
		},
	},
	"verbose": {
		Name: "verbose",
		Rules: map[string]string{
			RuleRigRoot:        "{rig}_rig",
			RuleRigMeta:        "{rig}_metadata",
			RuleRigLayer:       "{rig}_{layer}_hierarchy",
			RuleComponentRoot:  "{component}_{side}_hierarchy",
			RuleComponentMeta:  "{component}_{side}_metadata",
			RuleComponentLayer: "{component}_{side}_{layer}_hierarchy",
			RuleGuide:          "{component}_{side}_{id}_guide",
			RuleJoint:          "{component}_{side}_{id}_joint",
			RuleControl:        "{component}_{side}_{id}_control",
			RuleSettingsNode:   "{component}_{side}_{section}_settings",
			RuleSelectionSet:   "{rig}_{set}_selection",
		},
		Tokens: map[string]map[string]string{
			"side": {
				"left":   "left",
				"right":  "right",
				"middle": "mid",
				"center": "mid",
			},
			"sideSymmetry": {
				"L":     "R",
				"R":     "L",
				"left":  "right",
				"right": "left",
			},
		},
	},
}

// Find returns the preset registered under name.
func Find(name string) (*Preset, error) {
	preset, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return preset, nil
}

// Default returns the preset used when the configuration does not name one.
func Default() *Preset {
	return presets["standard"]
}

// PresetNames lists the registered presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands the rule template, substituting every {token} with the
// matching field value. Tokens without a field value fail the resolution
// rather than leaking braces into node names.
func (p *Preset) Resolve(rule string, fields Fields) (string, error) {
	template, ok := p.Rules[rule]
	if !ok {
		return "", fmt.Errorf("%w: %q in preset %q", ErrUnknownRule, rule, p.Name)
	}

	var b strings.Builder
	b.Grow(len(template))
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:open])
		rest = rest[open+1:]
		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return "", fmt.Errorf("unterminated token in rule %q of preset %q", rule, p.Name)
		}
		token := rest[:close]
		rest = rest[close+1:]
		value, ok := fields[token]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: {%s} in rule %q", ErrMissingField, token, rule)
		}
		b.WriteString(value)
	}
}

// TokenValue looks up key in the named token table.
func (p *Preset) TokenValue(token, key string) (string, bool) {
	table, ok := p.Tokens[token]
	if !ok {
		return "", false
	}
	value, ok := table[key]
	return value, ok
}

// SymmetricSide maps a side label to its mirror, consulting the preset's
// sideSymmetry token first and falling back to the built-in pairs when the
// label is not listed.
func (p *Preset) SymmetricSide(side string) string {
	if value, ok := p.TokenValue("sideSymmetry", side); ok {
		return value
	}
	return SymmetricSide(side)
}
