package store

// Capability catalog types

type Capability struct {
	ID       int64    `json:"-"`
	Name     string   `json:"can"`
	Repo     string   `json:"repo"`
	Export   string   `json:"export_name"`
	With     string   `json:"with,omitempty"`
	NBFields []string `json:"nb_fields,omitempty"`
	File     string   `json:"file"`
}

type Handler struct {
	ID            int64    `json:"-"`
	Repo          string   `json:"repo"`
	Kind          string   `json:"pattern"`
	CapabilityRef string   `json:"capability_ref,omitempty"`
	FactoryName   string   `json:"factory_name,omitempty"`
	HandlerName   string   `json:"handler_name,omitempty"`
	Served        []string `json:"capabilities_served,omitempty"`
	File          string   `json:"file"`
}

type Edge struct {
	ID         int64  `json:"-"`
	From       string `json:"from"`
	To         string `json:"to"`
	Via        string `json:"via"`
	Capability string `json:"capability,omitempty"`
}

type Connection struct {
	ID         int64  `json:"-"`
	Repo       string `json:"repo"`
	Kind       string `json:"type"`
	Target     string `json:"to"`
	Via        string `json:"via,omitempty"`
	Capability string `json:"capability,omitempty"`
	File       string `json:"file"`
}

type EntryPoint struct {
	ID   int64  `json:"-"`
	Repo string `json:"repo"`
	Kind string `json:"type"`
	File string `json:"file"`
}

type Route struct {
	ID        int64  `json:"-"`
	Repo      string `json:"repo"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Framework string `json:"framework,omitempty"`
	File      string `json:"file"`
}

// Infrastructure types

type InfraResource struct {
	ID         int64  `json:"-"`
	Repo       string `json:"repo"`
	Type       string `json:"type"`
	Field      string `json:"field"`
	Identifier string `json:"identifier"`
	File       string `json:"file"`
}

// InfraSummaryRow is one (category, detail, repo) triple of the pre-aggregated
// infrastructure summary.
type InfraSummaryRow struct {
	ID       int64  `json:"-"`
	Category string `json:"category"`
	Detail   string `json:"detail"`
	Repo     string `json:"repo"`
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type SQLTable struct {
	ID      int64    `json:"-"`
	Repo    string   `json:"repo"`
	Name    string   `json:"table_name"`
	Columns []Column `json:"columns"`
	File    string   `json:"file"`
}

// Product map types

type Repo struct {
	ID           int64    `json:"-"`
	Name         string   `json:"name"`
	Language     string   `json:"language"`
	DeployTarget string   `json:"deploy_target,omitempty"`
	IsMonorepo   bool     `json:"is_monorepo"`
	Publishes    []string `json:"publishes,omitempty"`
	Role         string   `json:"role"`
	Description  string   `json:"description,omitempty"`
	SameDeps     []string `json:"depends_on_same_product,omitempty"`
	CrossDeps    []string `json:"depends_on_cross_product,omitempty"`
	Product      string   `json:"product,omitempty"` // empty for standalone repos
}

type Product struct {
	ID          int64    `json:"-"`
	Name        string   `json:"product_name"`
	Description string   `json:"description,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Members     []string `json:"repos"`
	SizeMB      *float64 `json:"total_size_mb,omitempty"`
}

type Consumer struct {
	ID      int64  `json:"-"`
	Repo    string `json:"repo"`
	Product string `json:"product"`
	Note    string `json:"note"`
}

// Bookkeeping types

// Document records how one input document was loaded.
type Document struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Records     int    `json:"records"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// MetaEntry is a free-form key/value pair carried over from the product map.
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Snapshot is the full normalized record set committed in one transaction.
// Slice order is discovery order and is preserved by the store.
type Snapshot struct {
	Capabilities []Capability
	Handlers     []Handler
	Edges        []Edge
	Connections  []Connection
	EntryPoints  []EntryPoint
	Routes       []Route
	InfraSummary []InfraSummaryRow
	InfraRes     []InfraResource
	SQLTables    []SQLTable
	Repos        []Repo
	Products     []Product
	Consumers    []Consumer
	Documents    []Document
	Meta         []MetaEntry
}
