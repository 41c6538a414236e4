package template

import "strings"

// slug converts a template name into a lowercase filesystem-safe file stem.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "template" for empty input so a save
// never produces a dotfile.
func slug(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "template"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "template"
	}
	return out
}
