package ecoscope

// QueryBuilder answers structural questions over the Engine's index. Every
// query is a total function: a key that matches nothing yields an explicit
// labelled result, never an error.
type QueryBuilder struct {
	idx *index
}

// suggestionLimit caps closest-match suggestions on a lookup miss.
const suggestionLimit = 5

// RepoSummary names a repo with its role and language, as listed in
// dependency sections.
type RepoSummary struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Language string `json:"language"`
}

// CapabilityResult is the answer to Capability.
type CapabilityResult struct {
	Query       string       `json:"query"`
	Matched     bool         `json:"matched"`
	Fuzzy       bool         `json:"fuzzy,omitempty"`
	Definitions []Capability `json:"definitions"`
	Handlers    []Handler    `json:"handlers"`
	Edges       []Edge       `json:"edges"`
	Suggestions []string     `json:"suggestions,omitempty"`
}

// RepoCapabilities is the answer to CapabilityByRepo.
type RepoCapabilities struct {
	Repo        string       `json:"repo"`
	Defined     []Capability `json:"defined"`
	Handlers    []Handler    `json:"handlers"`
	Connections []Connection `json:"connections"`
}

// Empty reports whether the repo defines, handles, and calls nothing.
func (r *RepoCapabilities) Empty() bool {
	return len(r.Defined) == 0 && len(r.Handlers) == 0 && len(r.Connections) == 0
}

// Impact target kinds.
const (
	ImpactPackage = "package"
	ImpactRepo    = "repo"
)

// ImpactResult is the answer to Impact. Exactly one of Package and Repo is
// set, according to Kind.
type ImpactResult struct {
	Target  string         `json:"target"`
	Kind    string         `json:"kind"`
	Package *PackageImpact `json:"package,omitempty"`
	Repo    *RepoImpact    `json:"repo,omitempty"`
}

// PackageImpact lists who is affected by a change to a published package.
type PackageImpact struct {
	Package    string        `json:"package"`
	NotFound   bool          `json:"not_found"`
	Publishers []string      `json:"publishers"`
	Dependents []RepoSummary `json:"dependents"`
	Consumers  []Consumer    `json:"consumers"`
}

// RepoImpact lists a repo's metadata and everything linked to it. Sections
// populate independently: a repo the product map does not know can still
// have capabilities, edges, and infrastructure.
type RepoImpact struct {
	Repo         string        `json:"repo"`
	InProductMap bool          `json:"in_product_map"`
	Record       *Repo         `json:"record,omitempty"`
	Product      string        `json:"product,omitempty"`
	SameDeps     []string      `json:"same_product_deps"`
	CrossDeps    []string      `json:"cross_product_deps"`
	Dependents   []RepoSummary `json:"dependents"`
	Capabilities []Capability  `json:"capabilities"`
	Outbound     []Edge        `json:"outbound"`
	Inbound      []Edge        `json:"inbound"`
	Infra        []InfraGroup  `json:"infra"`
	Publishes    []string      `json:"publishes"`
}

// Empty reports whether no section has any data.
func (r *RepoImpact) Empty() bool {
	return r.Record == nil && len(r.SameDeps) == 0 && len(r.CrossDeps) == 0 &&
		len(r.Dependents) == 0 && len(r.Capabilities) == 0 && len(r.Outbound) == 0 &&
		len(r.Inbound) == 0 && len(r.Infra) == 0
}

// InfraGroup is a repo's resources of one type, in discovery order.
type InfraGroup struct {
	Type      string          `json:"type"`
	Resources []InfraResource `json:"resources"`
}

// InfraResult is the answer to Infra.
type InfraResult struct {
	Repo   string       `json:"repo"`
	Groups []InfraGroup `json:"groups"`
	Tables []SQLTable   `json:"tables"`
}

// Empty reports whether the repo has neither resources nor tables.
func (r *InfraResult) Empty() bool {
	return len(r.Groups) == 0 && len(r.Tables) == 0
}

// InfraTypeResult is the answer to InfraByType. The two passes are
// independent and need not agree.
type InfraTypeResult struct {
	Type       string           `json:"type"`
	Categories []InfraCategory  `json:"categories"`
	Repos      []InfraTypeMatch `json:"repos"`
}

// Empty reports whether neither pass matched.
func (r *InfraTypeResult) Empty() bool {
	return len(r.Categories) == 0 && len(r.Repos) == 0
}

// InfraCategory is one matching category of the pre-aggregated summary.
type InfraCategory struct {
	Name    string        `json:"name"`
	Details []InfraDetail `json:"details"`
}

type InfraDetail struct {
	Name  string   `json:"name"`
	Repos []string `json:"repos"`
}

// InfraTypeMatch is one repo's resources whose type matched.
type InfraTypeMatch struct {
	Repo      string          `json:"repo"`
	Resources []InfraResource `json:"resources"`
}

// GraphResult is the answer to Graph.
type GraphResult struct {
	Node        string   `json:"node"`
	Outbound    []Edge   `json:"outbound"`
	Inbound     []Edge   `json:"inbound"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Empty reports whether the node has no edges.
func (r *GraphResult) Empty() bool {
	return len(r.Outbound) == 0 && len(r.Inbound) == 0
}

// ProductResult is the answer to Product. On a miss, Available lists every
// product name instead.
type ProductResult struct {
	Query     string     `json:"query"`
	Matched   bool       `json:"matched"`
	Product   *Product   `json:"product,omitempty"`
	Members   []Repo     `json:"members,omitempty"`
	Consumers []Consumer `json:"consumers,omitempty"`
	Available []string   `json:"available,omitempty"`
}

// RepoResult is the answer to Repo: the repo-scoped outputs of the
// capability, impact, infra, and graph queries together.
type RepoResult struct {
	Name         string            `json:"name"`
	Found        bool              `json:"found"`
	Capabilities *RepoCapabilities `json:"capabilities"`
	Impact       *RepoImpact       `json:"impact"`
	Infra        *InfraResult      `json:"infra"`
	Graph        *GraphResult      `json:"graph"`
	Publishes    []string          `json:"publishes"`
}

// StatusResult reports how the datasets were loaded.
type StatusResult struct {
	Documents []Document    `json:"documents"`
	Counts    []RecordCount `json:"counts"`
	Meta      []MetaEntry   `json:"meta"`
}

// SurfaceResult lists a repo's entry points and HTTP routes.
type SurfaceResult struct {
	Repo        string       `json:"repo"`
	EntryPoints []EntryPoint `json:"entry_points"`
	Routes      []Route      `json:"routes"`
}

// Empty reports whether the repo has no entry surface.
func (r *SurfaceResult) Empty() bool {
	return len(r.EntryPoints) == 0 && len(r.Routes) == 0
}

// Status reports document statuses, record counts, and product map metadata.
func (q *QueryBuilder) Status() *StatusResult {
	return &StatusResult{
		Documents: q.idx.documents,
		Counts:    q.idx.counts,
		Meta:      q.idx.meta,
	}
}

// Surface lists entry points and routes discovered in repo.
func (q *QueryBuilder) Surface(repo string) *SurfaceResult {
	return &SurfaceResult{
		Repo:        repo,
		EntryPoints: q.idx.entriesByRepo[repo],
		Routes:      q.idx.routesByRepo[repo],
	}
}

// Repos returns every repo name in the product map, in discovery order.
func (q *QueryBuilder) Repos() []string {
	return q.idx.repoNames
}

// Products returns every product name, in discovery order.
func (q *QueryBuilder) Products() []string {
	return q.idx.productNames
}

// CapabilityNames returns every distinct capability name, in discovery order.
func (q *QueryBuilder) CapabilityNames() []string {
	return q.idx.capNames
}
