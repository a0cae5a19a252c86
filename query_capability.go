package ecoscope

import (
	"strings"

	"github.com/jward/ecoscope/internal/dataset"
)

// Capability looks up a capability by name. An exact name match wins;
// otherwise every known name containing name (ignoring case) matches and the
// result is marked Fuzzy.
//
// Handlers and edges are joined loosely: a handler matches when its
// capability reference contains the queried name or the export identifier of
// any matched definition, and an edge matches on its capability label the
// same way. Handlers are reported in repo discovery order.
func (q *QueryBuilder) Capability(name string) *CapabilityResult {
	name = strings.TrimSpace(name)
	res := &CapabilityResult{Query: name}

	defs := q.idx.capsByName[name]
	if len(defs) == 0 {
		for _, n := range q.idx.capNames {
			if Contains(n, name) {
				defs = append(defs, q.idx.capsByName[n]...)
			}
		}
		res.Fuzzy = len(defs) > 0
	}
	if len(defs) == 0 {
		res.Suggestions = Closest(name, q.idx.capNames, suggestionLimit)
		return res
	}
	res.Matched = true
	res.Definitions = defs

	needles := []string{name}
	for _, d := range defs {
		if d.Export == "" || d.Export == dataset.Placeholder {
			continue
		}
		needles = appendUnique(needles, d.Export)
	}

	for _, h := range q.idx.handlers {
		if containsAny(h.CapabilityRef, needles) {
			res.Handlers = append(res.Handlers, h)
		}
	}
	for _, e := range q.idx.edges {
		if containsAny(e.Capability, needles) {
			res.Edges = append(res.Edges, e)
		}
	}
	return res
}

// CapabilityByRepo returns exactly the capabilities repo defines, the
// handlers it contains, and its outbound connections. No fuzzy matching.
func (q *QueryBuilder) CapabilityByRepo(repo string) *RepoCapabilities {
	repo = strings.TrimSpace(repo)
	return &RepoCapabilities{
		Repo:        repo,
		Defined:     q.idx.capsByRepo[repo],
		Handlers:    q.idx.handlersByRepo[repo],
		Connections: q.idx.connsByRepo[repo],
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if Contains(haystack, n) {
			return true
		}
	}
	return false
}
