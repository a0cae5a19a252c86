package ecoscope

import "strings"

// Contains reports whether needle occurs in haystack, ignoring case. An empty
// needle never matches, so an absent optional field cannot match everything.
//
// Every query uses Contains for its loose joins: capability references,
// channel capability labels, infra categories, product names, and consumer
// notes.
func Contains(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Closest returns up to limit candidates related to query by containment in
// either direction, ignoring case. Candidates keep their given order and are
// returned at most once. A limit of zero or less means no limit.
func Closest(query string, candidates []string, limit int) []string {
	if query == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] || c == "" {
			continue
		}
		if Contains(c, query) || Contains(query, c) {
			seen[c] = true
			out = append(out, c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
