package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayTitle renders an internal identifier as a human readable title for
// command output: separators become spaces, anything unprintable is dropped
// and each word is title-cased. "fk_chain" becomes "Fk Chain".
func DisplayTitle(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	title := strings.Join(strings.Fields(b.String()), " ")
	if title == "" {
		return name
	}
	return cases.Title(language.Und).String(title)
}
