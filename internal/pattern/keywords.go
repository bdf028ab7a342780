package pattern

import "strings"

// ParseKeywords splits a comma-separated keyword list. Keywords are trimmed;
// empty and repeated entries are dropped, keeping first-seen order.
func ParseKeywords(csv string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, kw := range strings.Split(csv, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
