package ecoscope

import (
	"sort"
	"strings"
)

// packagePrefix marks a scoped package name, e.g. "@storacha/capabilities".
const packagePrefix = "@"

// Impact reports what a change to target would affect. Targets starting
// with "@" are package names; anything else is a repo name.
func (q *QueryBuilder) Impact(target string) *ImpactResult {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, packagePrefix) {
		return &ImpactResult{Target: target, Kind: ImpactPackage, Package: q.packageImpact(target)}
	}
	return &ImpactResult{Target: target, Kind: ImpactRepo, Repo: q.repoImpact(target)}
}

// packageImpact resolves the package's publishers and reports the union of
// their dependents, plus downstream consumers whose note mentions a
// publisher. A package nobody publishes is reported as NotFound.
func (q *QueryBuilder) packageImpact(pkg string) *PackageImpact {
	res := &PackageImpact{Package: pkg}
	res.Publishers = q.idx.pkgPublishers[pkg]
	if len(res.Publishers) == 0 {
		res.NotFound = true
		return res
	}

	set := make(map[string]bool)
	for _, pub := range res.Publishers {
		for _, d := range q.idx.rdeps[pub] {
			set[d] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		res.Dependents = append(res.Dependents, q.idx.repoSummary(n))
	}

	for _, c := range q.idx.consumers {
		if containsAny(c.Note, res.Publishers) {
			res.Consumers = append(res.Consumers, c)
		}
	}
	return res
}

func (q *QueryBuilder) repoImpact(repo string) *RepoImpact {
	res := &RepoImpact{Repo: repo}
	if r, ok := q.idx.repos[repo]; ok {
		res.InProductMap = true
		res.Record = &r
		res.Publishes = r.Publishes
	}
	res.Product = q.idx.repoProduct[repo]

	deps := q.idx.deps[repo]
	res.SameDeps = deps.same
	res.CrossDeps = deps.cross
	for _, d := range q.idx.rdeps[repo] {
		res.Dependents = append(res.Dependents, q.idx.repoSummary(d))
	}

	res.Capabilities = q.idx.capsByRepo[repo]
	res.Outbound = q.idx.forward[repo]
	res.Inbound = q.idx.backward[repo]
	res.Infra = groupByType(q.idx.infraByRepo[repo])
	return res
}

// groupByType groups resources by type. Types are sorted; resources keep
// discovery order within a type.
func groupByType(resources []InfraResource) []InfraGroup {
	if len(resources) == 0 {
		return nil
	}
	byType := make(map[string][]InfraResource)
	for _, r := range resources {
		byType[r.Type] = append(byType[r.Type], r)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	groups := make([]InfraGroup, 0, len(types))
	for _, t := range types {
		groups = append(groups, InfraGroup{Type: t, Resources: byType[t]})
	}
	return groups
}
