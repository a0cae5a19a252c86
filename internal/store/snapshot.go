package store

import (
	"database/sql"
	"fmt"
)

// The All* loaders return whole tables ordered by row ID, which is discovery
// order. They exist for bulk-loading into the in-memory query indexes.

func (s *Store) AllCapabilities() ([]Capability, error) {
	rows, err := s.db.Query(
		`SELECT id, name, repo, export_name, with_ref, nb_fields, file FROM capabilities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all capabilities: %w", err)
	}
	defer rows.Close()

	var out []Capability
	for rows.Next() {
		var c Capability
		var with, fields, file sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Repo, &c.Export, &with, &fields, &file); err != nil {
			return nil, fmt.Errorf("scan capability: %w", err)
		}
		c.With = with.String
		c.NBFields = unmarshalStrings(fields.String)
		c.File = file.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AllHandlers() ([]Handler, error) {
	rows, err := s.db.Query(
		`SELECT id, repo, kind, capability_ref, factory_name, handler_name, served, file
		 FROM capability_handlers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all handlers: %w", err)
	}
	defer rows.Close()

	var out []Handler
	for rows.Next() {
		var h Handler
		var ref, factory, name, served, file sql.NullString
		if err := rows.Scan(&h.ID, &h.Repo, &h.Kind, &ref, &factory, &name, &served, &file); err != nil {
			return nil, fmt.Errorf("scan handler: %w", err)
		}
		h.CapabilityRef = ref.String
		h.FactoryName = factory.String
		h.HandlerName = name.String
		h.Served = unmarshalStrings(served.String)
		h.File = file.String
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) AllEdges() ([]Edge, error) {
	rows, err := s.db.Query(`SELECT id, from_node, to_node, via, capability FROM service_edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		var capability sql.NullString
		if err := rows.Scan(&e.ID, &e.From, &e.To, &e.Via, &capability); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Capability = capability.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AllConnections() ([]Connection, error) {
	rows, err := s.db.Query(
		`SELECT id, repo, kind, target, via, capability, file FROM outbound_connections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var c Connection
		var target, via, capability, file sql.NullString
		if err := rows.Scan(&c.ID, &c.Repo, &c.Kind, &target, &via, &capability, &file); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		c.Target = target.String
		c.Via = via.String
		c.Capability = capability.String
		c.File = file.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AllEntryPoints() ([]EntryPoint, error) {
	rows, err := s.db.Query(`SELECT id, repo, kind, file FROM entry_points ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all entry points: %w", err)
	}
	defer rows.Close()

	var out []EntryPoint
	for rows.Next() {
		var ep EntryPoint
		var file sql.NullString
		if err := rows.Scan(&ep.ID, &ep.Repo, &ep.Kind, &file); err != nil {
			return nil, fmt.Errorf("scan entry point: %w", err)
		}
		ep.File = file.String
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (s *Store) AllRoutes() ([]Route, error) {
	rows, err := s.db.Query(`SELECT id, repo, method, path, framework, file FROM routes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all routes: %w", err)
	}
	defer rows.Close()

	var out []Route
	for rows.Next() {
		var r Route
		var method, path, framework, file sql.NullString
		if err := rows.Scan(&r.ID, &r.Repo, &method, &path, &framework, &file); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		r.Method = method.String
		r.Path = path.String
		r.Framework = framework.String
		r.File = file.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AllInfraSummary() ([]InfraSummaryRow, error) {
	rows, err := s.db.Query(`SELECT id, category, detail, repo FROM infra_summary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all infra summary: %w", err)
	}
	defer rows.Close()

	var out []InfraSummaryRow
	for rows.Next() {
		var r InfraSummaryRow
		if err := rows.Scan(&r.ID, &r.Category, &r.Detail, &r.Repo); err != nil {
			return nil, fmt.Errorf("scan infra summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AllInfraResources() ([]InfraResource, error) {
	rows, err := s.db.Query(`SELECT id, repo, type, field, identifier, file FROM infra_resources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all infra resources: %w", err)
	}
	defer rows.Close()

	var out []InfraResource
	for rows.Next() {
		var r InfraResource
		var field, ident, file sql.NullString
		if err := rows.Scan(&r.ID, &r.Repo, &r.Type, &field, &ident, &file); err != nil {
			return nil, fmt.Errorf("scan infra resource: %w", err)
		}
		r.Field = field.String
		r.Identifier = ident.String
		r.File = file.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllSQLTables loads every table with its columns in ordinal order.
func (s *Store) AllSQLTables() ([]SQLTable, error) {
	rows, err := s.db.Query(`SELECT id, repo, table_name, file FROM sql_tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all sql tables: %w", err)
	}
	var tables []SQLTable
	byID := make(map[int64]int)
	for rows.Next() {
		var t SQLTable
		var file sql.NullString
		if err := rows.Scan(&t.ID, &t.Repo, &t.Name, &file); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sql table: %w", err)
		}
		t.File = file.String
		byID[t.ID] = len(tables)
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("all sql tables: rows: %w", err)
	}

	// The pool holds a single connection, so columns are read only after the
	// table cursor has been closed.
	colRows, err := s.db.Query(`SELECT table_id, name, type FROM sql_columns ORDER BY table_id, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("all sql columns: %w", err)
	}
	defer colRows.Close()
	for colRows.Next() {
		var tableID int64
		var col Column
		var typ sql.NullString
		if err := colRows.Scan(&tableID, &col.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan sql column: %w", err)
		}
		col.Type = typ.String
		if i, ok := byID[tableID]; ok {
			tables[i].Columns = append(tables[i].Columns, col)
		}
	}
	return tables, colRows.Err()
}

func (s *Store) AllProducts() ([]Product, error) {
	rows, err := s.db.Query(`SELECT id, name, description, languages, members, size_mb FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		var desc, langs, members sql.NullString
		var size sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Name, &desc, &langs, &members, &size); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Description = desc.String
		p.Languages = unmarshalStrings(langs.String)
		p.Members = unmarshalStrings(members.String)
		if size.Valid {
			v := size.Float64
			p.SizeMB = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AllRepos() ([]Repo, error) {
	rows, err := s.db.Query(
		`SELECT id, name, language, deploy_target, is_monorepo, publishes, role, description,
		        same_deps, cross_deps, product
		 FROM repos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all repos: %w", err)
	}
	defer rows.Close()

	var out []Repo
	for rows.Next() {
		var r Repo
		var lang, deploy, publishes, role, desc, same, cross, product sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &lang, &deploy, &r.IsMonorepo, &publishes, &role, &desc,
			&same, &cross, &product); err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		r.Language = lang.String
		r.DeployTarget = deploy.String
		r.Publishes = unmarshalStrings(publishes.String)
		r.Role = role.String
		r.Description = desc.String
		r.SameDeps = unmarshalStrings(same.String)
		r.CrossDeps = unmarshalStrings(cross.String)
		r.Product = product.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AllConsumers() ([]Consumer, error) {
	rows, err := s.db.Query(`SELECT id, repo, product, note FROM downstream_consumers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all downstream consumers: %w", err)
	}
	defer rows.Close()

	var out []Consumer
	for rows.Next() {
		var c Consumer
		var product, note sql.NullString
		if err := rows.Scan(&c.ID, &c.Repo, &product, &note); err != nil {
			return nil, fmt.Errorf("scan downstream consumer: %w", err)
		}
		c.Product = product.String
		c.Note = note.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Documents() ([]Document, error) {
	rows, err := s.db.Query(`SELECT name, status, records, fingerprint, error FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var fp, msg sql.NullString
		if err := rows.Scan(&d.Name, &d.Status, &d.Records, &fp, &msg); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Fingerprint = fp.String
		d.Error = msg.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Meta() ([]MetaEntry, error) {
	rows, err := s.db.Query(`SELECT key, value FROM meta ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	defer rows.Close()

	var out []MetaEntry
	for rows.Next() {
		var m MetaEntry
		var value sql.NullString
		if err := rows.Scan(&m.Key, &value); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		m.Value = value.String
		out = append(out, m)
	}
	return out, rows.Err()
}
