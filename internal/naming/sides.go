package naming

import (
	"strings"
	"unicode"
)

var sidePairs = map[string]string{
	"l":     "r",
	"r":     "l",
	"lf":    "rt",
	"rt":    "lf",
	"left":  "right",
	"right": "left",
}

// SymmetricSide flips a side label across the rig's symmetry plane. The
// lookup is case-insensitive and the result preserves the casing of the
// input, so "L" maps to "R" and "Left" maps to "Right". Labels without a
// mirror, such as "M", come back unchanged.
func SymmetricSide(side string) string {
	mirrored, ok := sidePairs[strings.ToLower(side)]
	if !ok {
		return side
	}
	return matchCase(side, mirrored)
}

// HasSymmetry reports whether the side label has a distinct mirror.
func HasSymmetry(side string) bool {
	_, ok := sidePairs[strings.ToLower(side)]
	return ok
}

func matchCase(reference, value string) string {
	if reference == strings.ToUpper(reference) {
		return strings.ToUpper(value)
	}
	runes := []rune(reference)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		out := []rune(value)
		out[0] = unicode.ToUpper(out[0])
		return string(out)
	}
	return value
}
