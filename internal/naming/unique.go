package naming

import "strconv"

// UniqueName returns base when it is free, otherwise base with the smallest
// positive integer suffix that taken does not claim: "leg", "leg1", "leg2".
func UniqueName(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}
