package ecoscope

import (
	"sort"
	"strings"
)

// Infra groups repo's infrastructure resources by type and lists the SQL
// tables declared in it.
func (q *QueryBuilder) Infra(repo string) *InfraResult {
	repo = strings.TrimSpace(repo)
	return &InfraResult{
		Repo:   repo,
		Groups: groupByType(q.idx.infraByRepo[repo]),
		Tables: q.idx.tablesByRepo[repo],
	}
}

// InfraByType finds infrastructure whose classification contains t,
// ignoring case. It searches the pre-aggregated summary categories and the
// per-repo resource types separately; the two vocabularies differ, so both
// passes are reported.
func (q *QueryBuilder) InfraByType(t string) *InfraTypeResult {
	t = strings.TrimSpace(t)
	res := &InfraTypeResult{Type: t}

	for _, cat := range q.idx.infraCategories {
		if !Contains(cat, t) {
			continue
		}
		details := q.idx.infraSummary[cat]
		names := make([]string, 0, len(details))
		for d := range details {
			names = append(names, d)
		}
		sort.Strings(names)

		c := InfraCategory{Name: cat}
		for _, d := range names {
			c.Details = append(c.Details, InfraDetail{Name: d, Repos: details[d]})
		}
		res.Categories = append(res.Categories, c)
	}

	repos := make([]string, len(q.idx.infraRepos))
	copy(repos, q.idx.infraRepos)
	sort.Strings(repos)
	for _, repo := range repos {
		var matched []InfraResource
		for _, r := range q.idx.infraByRepo[repo] {
			if Contains(r.Type, t) {
				matched = append(matched, r)
			}
		}
		if len(matched) > 0 {
			res.Repos = append(res.Repos, InfraTypeMatch{Repo: repo, Resources: matched})
		}
	}
	return res
}
