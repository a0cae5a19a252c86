package dataset

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/jward/ecoscope/internal/config"
	"github.com/jward/ecoscope/internal/store"
)

// Scanner spellings of handler patterns and graph channels, mapped onto the
// vocabulary the queries report. Unrecognized values are kept verbatim.
var (
	handlerKinds = map[string]string{
		"Server.provide":         "direct_provide",
		"Server.provideAdvanced": "advanced_provide",
		"go_handler_func":        "platform_handler_function",
		"go_ucanto_server":       "platform_server_setup",
	}
	edgeChannels = map[string]string{
		"ucanto":             "rpc_invocation",
		"ucanto_connection":  "rpc_connection",
		"cf_service_binding": "service_binding",
		"queue":              "queue_send",
		"go_http":            "platform_http_call",
	}
)

func canonical(aliases map[string]string, v string) string {
	if c, ok := aliases[v]; ok {
		return c
	}
	return v
}

// normalizer turns one decoded document into store records, applying
// defaults and the ignore set exactly once.
type normalizer struct {
	doc       string
	snap      *store.Snapshot
	ignore    *config.IgnoreSet
	logger    *slog.Logger
	records   int
	malformed int
}

// required returns r[key], or Placeholder when the field is missing.
func (n *normalizer) required(r record, key string) string {
	if v := r.str(key); v != "" {
		return v
	}
	n.malformed++
	return Placeholder
}

func (n *normalizer) section(top Object, key string) []record {
	raw, ok := top.Get(key)
	if !ok {
		return nil
	}
	recs, bad, err := decodeRecords(raw)
	if err != nil {
		n.logger.Warn("skipping malformed section", "document", n.doc, "section", key, "error", err)
		n.malformed++
		return nil
	}
	n.malformed += bad
	return recs
}

func (n *normalizer) object(top Object, key string) Object {
	raw, ok := top.Get(key)
	if !ok {
		return nil
	}
	var obj Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		n.logger.Warn("skipping malformed section", "document", n.doc, "section", key, "error", err)
		n.malformed++
		return nil
	}
	return obj
}

func (n *normalizer) ignored(repo string) bool {
	if n.ignore.Match(repo) {
		n.logger.Debug("ignoring repo", "document", n.doc, "repo", repo)
		return true
	}
	return false
}

// api normalizes the capability/API surface document.
func (n *normalizer) api(top Object) {
	for _, r := range n.section(top, "capability_catalog") {
		if n.ignored(r.str("repo")) {
			continue
		}
		n.snap.Capabilities = append(n.snap.Capabilities, store.Capability{
			Name:     n.required(r, "can"),
			Repo:     n.required(r, "repo"),
			Export:   n.required(r, "export_name"),
			With:     r.str("with"),
			NBFields: r.strs("nb_fields"),
			File:     n.required(r, "file"),
		})
		n.records++
	}

	for _, r := range n.section(top, "service_graph") {
		if n.ignored(r.str("from")) {
			continue
		}
		n.snap.Edges = append(n.snap.Edges, store.Edge{
			From:       n.required(r, "from"),
			To:         n.required(r, "to"),
			Via:        canonical(edgeChannels, n.required(r, "via")),
			Capability: r.str("capability"),
		})
		n.records++
	}

	for _, f := range n.object(top, "per_repo") {
		repo := f.Key
		if n.ignored(repo) {
			continue
		}
		data, ok := decodeRecord(f.Value)
		if !ok {
			n.logger.Warn("skipping malformed per-repo entry", "document", n.doc, "repo", repo)
			n.malformed++
			continue
		}
		n.perRepoAPI(repo, data)
	}
}

func (n *normalizer) perRepoAPI(repo string, data record) {
	for _, h := range data.records("capability_handlers") {
		n.snap.Handlers = append(n.snap.Handlers, store.Handler{
			Repo:          repo,
			Kind:          canonical(handlerKinds, n.required(h, "pattern")),
			CapabilityRef: h.str("capability_ref"),
			FactoryName:   h.str("factory_name"),
			HandlerName:   h.str("handler_name"),
			Served:        h.strs("capabilities_served"),
			File:          n.required(h, "file"),
		})
		n.records++
	}

	conns := data.records("outbound_connections")
	if _, ok := data["outbound_connections"]; !ok {
		conns = data.records("ucanto_connections")
	}
	for _, c := range conns {
		_, target := c.first("to", "audience", "target_url", "target_id")
		n.snap.Connections = append(n.snap.Connections, store.Connection{
			Repo:       repo,
			Kind:       n.required(c, "type"),
			Target:     target,
			Via:        c.str("via"),
			Capability: c.str("capability"),
			File:       n.required(c, "file"),
		})
		n.records++
	}

	for _, e := range data.records("entry_points") {
		n.snap.EntryPoints = append(n.snap.EntryPoints, store.EntryPoint{
			Repo: repo,
			Kind: n.required(e, "type"),
			File: n.required(e, "file"),
		})
		n.records++
	}

	for _, rt := range data.records("routes") {
		n.snap.Routes = append(n.snap.Routes, store.Route{
			Repo:      repo,
			Method:    n.required(rt, "method"),
			Path:      n.required(rt, "path"),
			Framework: rt.str("framework"),
			File:      n.required(rt, "file"),
		})
		n.records++
	}
}

// infra normalizes the infrastructure document.
func (n *normalizer) infra(top Object) {
	for _, cat := range n.object(top, "summary") {
		var details Object
		if err := json.Unmarshal(cat.Value, &details); err != nil {
			n.logger.Warn("skipping malformed summary category", "document", n.doc, "category", cat.Key, "error", err)
			n.malformed++
			continue
		}
		for _, d := range details {
			var repos []any
			if err := json.Unmarshal(d.Value, &repos); err != nil {
				n.malformed++
			}
			kept := 0
			for _, v := range repos {
				repo, ok := v.(string)
				if !ok || n.ignored(repo) {
					continue
				}
				n.snap.InfraSummary = append(n.snap.InfraSummary, store.InfraSummaryRow{
					Category: cat.Key, Detail: d.Key, Repo: repo,
				})
				kept++
				n.records++
			}
			// A detail with no repos is still a known resource.
			if kept == 0 && len(repos) == 0 {
				n.snap.InfraSummary = append(n.snap.InfraSummary, store.InfraSummaryRow{
					Category: cat.Key, Detail: d.Key,
				})
				n.records++
			}
		}
	}

	for _, f := range n.object(top, "per_repo") {
		repo := f.Key
		if n.ignored(repo) {
			continue
		}
		resources, bad, err := decodeRecords(f.Value)
		if err != nil {
			n.logger.Warn("skipping malformed per-repo entry", "document", n.doc, "repo", repo, "error", err)
			n.malformed++
			continue
		}
		n.malformed += bad
		for _, r := range resources {
			field, ident := r.first("name", "binding", "driver", "table_name")
			if ident == "" {
				ident = Placeholder
				n.malformed++
			}
			n.snap.InfraRes = append(n.snap.InfraRes, store.InfraResource{
				Repo:       repo,
				Type:       n.required(r, "type"),
				Field:      field,
				Identifier: ident,
				File:       n.required(r, "file"),
			})
			n.records++
		}
	}

	for _, r := range n.section(top, "sql_schemas") {
		if n.ignored(r.str("repo")) {
			continue
		}
		t := store.SQLTable{
			Repo: n.required(r, "repo"),
			Name: n.required(r, "table_name"),
			File: n.required(r, "file"),
		}
		for _, c := range r.records("columns") {
			t.Columns = append(t.Columns, store.Column{Name: n.required(c, "name"), Type: c.str("type")})
		}
		n.snap.SQLTables = append(n.snap.SQLTables, t)
		n.records++
	}
}

// productGroup is a product with its member records before they are
// flattened into the snapshot.
type productGroup struct {
	product store.Product
	members []store.Repo
}

// product normalizes the product document, regrouping members when a
// taxonomy is supplied.
func (n *normalizer) product(top Object, tax *config.Taxonomy) {
	var groups []productGroup
	for _, r := range n.section(top, "products") {
		g := productGroup{product: store.Product{
			Name:        n.required(r, "product_name"),
			Description: r.str("description"),
			Languages:   r.strs("languages"),
			SizeMB:      r.number("total_size_mb"),
		}}
		for _, m := range r.records("repos") {
			if n.ignored(m.str("name")) {
				continue
			}
			g.members = append(g.members, n.repo(m))
		}
		groups = append(groups, g)
	}

	var standalone []store.Repo
	for _, r := range n.section(top, "standalone") {
		if n.ignored(r.str("name")) {
			continue
		}
		standalone = append(standalone, n.repo(r))
	}

	if tax != nil {
		groups, standalone = applyTaxonomy(groups, standalone, tax)
	}

	for _, g := range groups {
		p := g.product
		p.Members = make([]string, 0, len(g.members))
		for _, m := range g.members {
			p.Members = append(p.Members, m.Name)
		}
		if len(p.Languages) == 0 {
			p.Languages = memberLanguages(g.members)
		}
		n.snap.Products = append(n.snap.Products, p)
		n.records++
		for _, m := range g.members {
			m.Product = p.Name
			n.snap.Repos = append(n.snap.Repos, m)
			n.records++
		}
	}
	for _, m := range standalone {
		m.Product = ""
		n.snap.Repos = append(n.snap.Repos, m)
		n.records++
	}

	for _, r := range n.section(top, "downstream_consumers") {
		if n.ignored(r.str("repo")) {
			continue
		}
		n.snap.Consumers = append(n.snap.Consumers, store.Consumer{
			Repo:    n.required(r, "repo"),
			Product: r.str("product"),
			Note:    r.str("note"),
		})
		n.records++
	}

	for _, f := range n.object(top, "meta") {
		n.snap.Meta = append(n.snap.Meta, store.MetaEntry{Key: f.Key, Value: metaValue(f.Value)})
	}
}

func (n *normalizer) repo(r record) store.Repo {
	return store.Repo{
		Name:         n.required(r, "name"),
		Language:     n.required(r, "language"),
		DeployTarget: r.str("deploy_target"),
		IsMonorepo:   r.boolean("is_monorepo"),
		Publishes:    r.strs("publishes"),
		Role:         n.required(r, "role"),
		Description:  r.str("description"),
		SameDeps:     r.strs("depends_on_same_product"),
		CrossDeps:    r.strs("depends_on_cross_product"),
	}
}

// applyTaxonomy re-derives product groups from tax. Member records come from
// the document's groups and standalone list; a listed repo the document does
// not know gets a placeholder record. When two taxonomy products list the
// same repo, the later one wins. Repos no taxonomy product claims become
// standalone, in document order.
func applyTaxonomy(groups []productGroup, standalone []store.Repo, tax *config.Taxonomy) ([]productGroup, []store.Repo) {
	known := make(map[string]store.Repo)
	var order []string
	remember := func(r store.Repo) {
		if _, ok := known[r.Name]; !ok {
			order = append(order, r.Name)
		}
		known[r.Name] = r
	}
	docProducts := make(map[string]store.Product)
	for _, g := range groups {
		docProducts[g.product.Name] = g.product
		for _, m := range g.members {
			remember(m)
		}
	}
	for _, m := range standalone {
		remember(m)
	}

	owner := make(map[string]int)
	for i, p := range tax.Products {
		for _, name := range p.Repos {
			owner[name] = i
		}
	}

	out := make([]productGroup, 0, len(tax.Products))
	for i, p := range tax.Products {
		g := productGroup{product: store.Product{Name: p.Name, Description: p.Description}}
		if g.product.Description == "" {
			g.product.Description = docProducts[p.Name].Description
		}
		seen := make(map[string]bool)
		for _, name := range p.Repos {
			if owner[name] != i || seen[name] {
				continue
			}
			seen[name] = true
			rec, ok := known[name]
			if !ok {
				rec = store.Repo{Name: name, Language: Placeholder, Role: Placeholder}
			}
			g.members = append(g.members, rec)
		}
		out = append(out, g)
	}

	var rest []store.Repo
	for _, name := range order {
		if _, claimed := owner[name]; !claimed {
			rest = append(rest, known[name])
		}
	}
	return out, rest
}

func memberLanguages(members []store.Repo) []string {
	set := make(map[string]bool)
	for _, m := range members {
		if m.Language != "" && m.Language != Placeholder {
			set[m.Language] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	langs := make([]string, 0, len(set))
	for l := range set {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// metaValue renders a meta value as text: strings unquoted, everything else
// as compact JSON.
func metaValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
