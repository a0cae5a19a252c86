package ecoscope

import (
	"fmt"
	"sort"

	"github.com/jward/ecoscope/internal/dataset"
	"github.com/jward/ecoscope/internal/store"
)

// index holds every lookup structure the queries join across. All lists keep
// the store's row order, which is the scanners' discovery order. It is built
// once per Engine and never mutated afterwards.
type index struct {
	// Capability catalog
	capsByName     map[string][]Capability
	capNames       []string // distinct, discovery order
	capsByRepo     map[string][]Capability
	handlers       []Handler
	handlersByRepo map[string][]Handler
	connsByRepo    map[string][]Connection
	entriesByRepo  map[string][]EntryPoint
	routesByRepo   map[string][]Route

	// Service graph; duplicates retained
	edges    []Edge
	forward  map[string][]Edge
	backward map[string][]Edge
	nodes    []string // distinct endpoint labels, discovery order

	// Infrastructure at two granularities
	infraCategories []string
	infraSummary    map[string]map[string][]string // category -> detail -> repos
	infraByRepo     map[string][]InfraResource
	infraRepos      []string
	tablesByRepo    map[string][]SQLTable

	// Product map
	products       map[string]Product
	productNames   []string
	productMembers map[string][]Repo
	repoProduct    map[string]string
	repos          map[string]Repo // merged, last write wins
	repoNames      []string
	pkgPublishers  map[string][]string
	deps           map[string]depLists
	rdeps          map[string][]string // sorted
	consumers      []Consumer

	documents []Document
	meta      []MetaEntry
	counts    []RecordCount
}

type depLists struct {
	same  []string
	cross []string
}

// RecordCount is the number of records of one kind in the snapshot.
type RecordCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// buildIndex bulk-loads every table from s and derives the lookup maps.
func buildIndex(s *store.Store) (*index, error) {
	idx := &index{
		capsByName:     make(map[string][]Capability),
		capsByRepo:     make(map[string][]Capability),
		handlersByRepo: make(map[string][]Handler),
		connsByRepo:    make(map[string][]Connection),
		entriesByRepo:  make(map[string][]EntryPoint),
		routesByRepo:   make(map[string][]Route),
		forward:        make(map[string][]Edge),
		backward:       make(map[string][]Edge),
		infraSummary:   make(map[string]map[string][]string),
		infraByRepo:    make(map[string][]InfraResource),
		tablesByRepo:   make(map[string][]SQLTable),
		products:       make(map[string]Product),
		productMembers: make(map[string][]Repo),
		repoProduct:    make(map[string]string),
		repos:          make(map[string]Repo),
		pkgPublishers:  make(map[string][]string),
		deps:           make(map[string]depLists),
		rdeps:          make(map[string][]string),
	}

	if err := idx.loadCapabilities(s); err != nil {
		return nil, err
	}
	if err := idx.loadGraph(s); err != nil {
		return nil, err
	}
	if err := idx.loadInfra(s); err != nil {
		return nil, err
	}
	if err := idx.loadProducts(s); err != nil {
		return nil, err
	}

	var err error
	if idx.documents, err = s.Documents(); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if idx.meta, err = s.Meta(); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

func (idx *index) count(kind string, n int) {
	idx.counts = append(idx.counts, RecordCount{Kind: kind, Count: n})
}

func (idx *index) loadCapabilities(s *store.Store) error {
	caps, err := s.AllCapabilities()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, c := range caps {
		if _, ok := idx.capsByName[c.Name]; !ok {
			idx.capNames = append(idx.capNames, c.Name)
		}
		idx.capsByName[c.Name] = append(idx.capsByName[c.Name], c)
		idx.capsByRepo[c.Repo] = append(idx.capsByRepo[c.Repo], c)
	}

	handlers, err := s.AllHandlers()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	idx.handlers = handlers
	for _, h := range handlers {
		idx.handlersByRepo[h.Repo] = append(idx.handlersByRepo[h.Repo], h)
	}

	conns, err := s.AllConnections()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, c := range conns {
		idx.connsByRepo[c.Repo] = append(idx.connsByRepo[c.Repo], c)
	}

	entries, err := s.AllEntryPoints()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, ep := range entries {
		idx.entriesByRepo[ep.Repo] = append(idx.entriesByRepo[ep.Repo], ep)
	}

	routes, err := s.AllRoutes()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, r := range routes {
		idx.routesByRepo[r.Repo] = append(idx.routesByRepo[r.Repo], r)
	}

	idx.count("capabilities", len(caps))
	idx.count("capability handlers", len(handlers))
	idx.count("outbound connections", len(conns))
	idx.count("entry points", len(entries))
	idx.count("routes", len(routes))
	return nil
}

func (idx *index) loadGraph(s *store.Store) error {
	edges, err := s.AllEdges()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	idx.edges = edges
	seen := make(map[string]bool)
	node := func(label string) {
		if !seen[label] {
			seen[label] = true
			idx.nodes = append(idx.nodes, label)
		}
	}
	for _, e := range edges {
		idx.forward[e.From] = append(idx.forward[e.From], e)
		idx.backward[e.To] = append(idx.backward[e.To], e)
		node(e.From)
		node(e.To)
	}
	idx.count("service graph edges", len(edges))
	return nil
}

func (idx *index) loadInfra(s *store.Store) error {
	summary, err := s.AllInfraSummary()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, row := range summary {
		details, ok := idx.infraSummary[row.Category]
		if !ok {
			details = make(map[string][]string)
			idx.infraSummary[row.Category] = details
			idx.infraCategories = append(idx.infraCategories, row.Category)
		}
		repos := details[row.Detail]
		if repos == nil {
			repos = []string{}
		}
		if row.Repo != "" {
			repos = append(repos, row.Repo)
		}
		details[row.Detail] = repos
	}

	resources, err := s.AllInfraResources()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, r := range resources {
		if _, ok := idx.infraByRepo[r.Repo]; !ok {
			idx.infraRepos = append(idx.infraRepos, r.Repo)
		}
		idx.infraByRepo[r.Repo] = append(idx.infraByRepo[r.Repo], r)
	}

	tables, err := s.AllSQLTables()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, t := range tables {
		idx.tablesByRepo[t.Repo] = append(idx.tablesByRepo[t.Repo], t)
	}

	idx.count("infra categories", len(idx.infraCategories))
	idx.count("infra resources", len(resources))
	idx.count("sql tables", len(tables))
	return nil
}

func (idx *index) loadProducts(s *store.Store) error {
	products, err := s.AllProducts()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, p := range products {
		if _, ok := idx.products[p.Name]; !ok {
			idx.productNames = append(idx.productNames, p.Name)
		}
		idx.products[p.Name] = p
	}

	repos, err := s.AllRepos()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	for _, r := range repos {
		if _, ok := idx.repos[r.Name]; !ok {
			idx.repoNames = append(idx.repoNames, r.Name)
		}
		idx.repos[r.Name] = r
		if r.Product != "" {
			idx.repoProduct[r.Name] = r.Product
		} else {
			delete(idx.repoProduct, r.Name)
		}
		for _, pkg := range r.Publishes {
			idx.pkgPublishers[pkg] = appendUnique(idx.pkgPublishers[pkg], r.Name)
		}
	}

	// A repo belongs to at most one product: the one its last record names.
	listed := make(map[string]bool)
	for _, r := range repos {
		if r.Product == "" || listed[r.Name] || idx.repoProduct[r.Name] != r.Product {
			continue
		}
		listed[r.Name] = true
		idx.productMembers[r.Product] = append(idx.productMembers[r.Product], r)
	}

	// Dependencies come from the merged records so the reverse index is the
	// exact inverse of what the forward lookups report.
	dependents := make(map[string]map[string]bool)
	for _, name := range idx.repoNames {
		r := idx.repos[name]
		idx.deps[name] = depLists{same: r.SameDeps, cross: r.CrossDeps}
		for _, dep := range r.SameDeps {
			addDependent(dependents, dep, name)
		}
		for _, dep := range r.CrossDeps {
			addDependent(dependents, dep, name)
		}
	}
	for dep, set := range dependents {
		list := make([]string, 0, len(set))
		for name := range set {
			list = append(list, name)
		}
		sort.Strings(list)
		idx.rdeps[dep] = list
	}

	consumers, err := s.AllConsumers()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	idx.consumers = consumers

	idx.count("products", len(products))
	idx.count("repos", len(idx.repoNames))
	idx.count("downstream consumers", len(consumers))
	return nil
}

func addDependent(m map[string]map[string]bool, dep, dependent string) {
	set, ok := m[dep]
	if !ok {
		set = make(map[string]bool)
		m[dep] = set
	}
	set[dependent] = true
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// repoSummary describes name for dependency listings. Repos missing from the
// product map report placeholder role and language.
func (idx *index) repoSummary(name string) RepoSummary {
	sum := RepoSummary{Name: name, Role: dataset.Placeholder, Language: dataset.Placeholder}
	if r, ok := idx.repos[name]; ok {
		sum.Role = r.Role
		sum.Language = r.Language
	}
	return sum
}
