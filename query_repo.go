package ecoscope

import "strings"

// Repo is the composite view of one repo: its capability, impact, infra, and
// graph sections plus the packages it publishes. Each section is joined on
// its own index, so a repo the product map does not know still reports
// whatever the other datasets hold. Found is false only when every section
// is empty.
func (q *QueryBuilder) Repo(name string) *RepoResult {
	name = strings.TrimSpace(name)
	res := &RepoResult{
		Name:         name,
		Capabilities: q.CapabilityByRepo(name),
		Impact:       q.repoImpact(name),
		Infra:        q.Infra(name),
		Graph:        q.Graph(name),
	}
	res.Publishes = res.Impact.Publishes
	res.Found = !res.Capabilities.Empty() || !res.Impact.Empty() ||
		!res.Infra.Empty() || !res.Graph.Empty()
	if res.Found {
		res.Graph.Suggestions = nil
	}
	return res
}
