package store

import (
	"database/sql"
	"fmt"
)

// CommitSnapshot inserts every record of snap within a single transaction.
// A store holds one snapshot: after a successful commit it is read-only.
// Records are inserted in slice order, so row IDs reflect discovery order and
// the bulk loaders can return them unchanged.
func (s *Store) CommitSnapshot(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range snap.Capabilities {
		c := &snap.Capabilities[i]
		id, err := execInsert(tx,
			`INSERT INTO capabilities (name, repo, export_name, with_ref, nb_fields, file)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.Name, c.Repo, c.Export, nullString(c.With), marshalStrings(c.NBFields), c.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: capability %q: %w", c.Name, err)
		}
		c.ID = id
	}

	for i := range snap.Handlers {
		h := &snap.Handlers[i]
		id, err := execInsert(tx,
			`INSERT INTO capability_handlers (repo, kind, capability_ref, factory_name, handler_name, served, file)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			h.Repo, h.Kind, nullString(h.CapabilityRef), nullString(h.FactoryName),
			nullString(h.HandlerName), marshalStrings(h.Served), h.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: handler in %q: %w", h.Repo, err)
		}
		h.ID = id
	}

	for i := range snap.Edges {
		e := &snap.Edges[i]
		id, err := execInsert(tx,
			`INSERT INTO service_edges (from_node, to_node, via, capability) VALUES (?, ?, ?, ?)`,
			e.From, e.To, e.Via, nullString(e.Capability))
		if err != nil {
			return fmt.Errorf("commit snapshot: edge %s -> %s: %w", e.From, e.To, err)
		}
		e.ID = id
	}

	for i := range snap.Connections {
		c := &snap.Connections[i]
		id, err := execInsert(tx,
			`INSERT INTO outbound_connections (repo, kind, target, via, capability, file)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.Repo, c.Kind, nullString(c.Target), nullString(c.Via), nullString(c.Capability), c.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: connection in %q: %w", c.Repo, err)
		}
		c.ID = id
	}

	for i := range snap.EntryPoints {
		ep := &snap.EntryPoints[i]
		id, err := execInsert(tx,
			`INSERT INTO entry_points (repo, kind, file) VALUES (?, ?, ?)`,
			ep.Repo, ep.Kind, ep.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: entry point in %q: %w", ep.Repo, err)
		}
		ep.ID = id
	}

	for i := range snap.Routes {
		r := &snap.Routes[i]
		id, err := execInsert(tx,
			`INSERT INTO routes (repo, method, path, framework, file) VALUES (?, ?, ?, ?, ?)`,
			r.Repo, r.Method, r.Path, nullString(r.Framework), r.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: route in %q: %w", r.Repo, err)
		}
		r.ID = id
	}

	for i := range snap.InfraSummary {
		row := &snap.InfraSummary[i]
		id, err := execInsert(tx,
			`INSERT INTO infra_summary (category, detail, repo) VALUES (?, ?, ?)`,
			row.Category, row.Detail, row.Repo)
		if err != nil {
			return fmt.Errorf("commit snapshot: infra summary %q: %w", row.Category, err)
		}
		row.ID = id
	}

	for i := range snap.InfraRes {
		r := &snap.InfraRes[i]
		id, err := execInsert(tx,
			`INSERT INTO infra_resources (repo, type, field, identifier, file) VALUES (?, ?, ?, ?, ?)`,
			r.Repo, r.Type, r.Field, r.Identifier, r.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: infra resource in %q: %w", r.Repo, err)
		}
		r.ID = id
	}

	for i := range snap.SQLTables {
		t := &snap.SQLTables[i]
		id, err := execInsert(tx,
			`INSERT INTO sql_tables (repo, table_name, file) VALUES (?, ?, ?)`,
			t.Repo, t.Name, t.File)
		if err != nil {
			return fmt.Errorf("commit snapshot: sql table %q: %w", t.Name, err)
		}
		t.ID = id
		for ord, col := range t.Columns {
			if _, err := execInsert(tx,
				`INSERT INTO sql_columns (table_id, ordinal, name, type) VALUES (?, ?, ?, ?)`,
				id, ord, col.Name, col.Type); err != nil {
				return fmt.Errorf("commit snapshot: column %s.%s: %w", t.Name, col.Name, err)
			}
		}
	}

	for i := range snap.Products {
		p := &snap.Products[i]
		var size sql.NullFloat64
		if p.SizeMB != nil {
			size = sql.NullFloat64{Float64: *p.SizeMB, Valid: true}
		}
		id, err := execInsert(tx,
			`INSERT INTO products (name, description, languages, members, size_mb) VALUES (?, ?, ?, ?, ?)`,
			p.Name, nullString(p.Description), marshalStrings(p.Languages), marshalStrings(p.Members), size)
		if err != nil {
			return fmt.Errorf("commit snapshot: product %q: %w", p.Name, err)
		}
		p.ID = id
	}

	for i := range snap.Repos {
		r := &snap.Repos[i]
		id, err := execInsert(tx,
			`INSERT INTO repos (name, language, deploy_target, is_monorepo, publishes, role, description, same_deps, cross_deps, product)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Name, r.Language, nullString(r.DeployTarget), r.IsMonorepo, marshalStrings(r.Publishes),
			r.Role, nullString(r.Description), marshalStrings(r.SameDeps), marshalStrings(r.CrossDeps),
			nullString(r.Product))
		if err != nil {
			return fmt.Errorf("commit snapshot: repo %q: %w", r.Name, err)
		}
		r.ID = id
	}

	for i := range snap.Consumers {
		c := &snap.Consumers[i]
		id, err := execInsert(tx,
			`INSERT INTO downstream_consumers (repo, product, note) VALUES (?, ?, ?)`,
			c.Repo, c.Product, c.Note)
		if err != nil {
			return fmt.Errorf("commit snapshot: downstream consumer %q: %w", c.Repo, err)
		}
		c.ID = id
	}

	for _, d := range snap.Documents {
		if _, err := execInsert(tx,
			`INSERT INTO documents (name, status, records, fingerprint, error) VALUES (?, ?, ?, ?, ?)`,
			d.Name, d.Status, d.Records, nullString(d.Fingerprint), nullString(d.Error)); err != nil {
			return fmt.Errorf("commit snapshot: document %q: %w", d.Name, err)
		}
	}

	for _, m := range snap.Meta {
		if _, err := execInsert(tx, `INSERT INTO meta (key, value) VALUES (?, ?)`, m.Key, m.Value); err != nil {
			return fmt.Errorf("commit snapshot: meta %q: %w", m.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	// The snapshot is immutable from here on; SQLite refuses any later write.
	if _, err := s.db.Exec("PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("commit snapshot: seal: %w", err)
	}
	return nil
}

// execInsert runs an INSERT within tx and returns the new row ID.
func execInsert(tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
