package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the in-memory SQLite snapshot of the three ecosystem datasets.
// It lives for one invocation and is never written to disk.
type Store struct {
	db *sql.DB
}

// NewStore opens a private in-memory SQLite database. Every connection to
// ":memory:" gets its own database, so the pool is pinned to one connection.
func NewStore() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection and discards the snapshot.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all snapshot tables. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Query runs a read-only SELECT against the snapshot and returns each row as
// a column-name keyed map. Rows keep the order SQLite returns them in. Once a
// snapshot is committed the connection is query-only, so a write hidden
// behind WITH fails as well.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(query))
	if !strings.HasPrefix(trimmed, "SELECT") && !strings.HasPrefix(trimmed, "WITH") {
		return nil, fmt.Errorf("query: only SELECT statements are allowed")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query: columns: %w", err)
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query: scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: rows: %w", err)
	}
	return results, nil
}

const schemaDDL = `
-- Capability catalog

CREATE TABLE IF NOT EXISTS capabilities (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  repo            TEXT NOT NULL,
  export_name     TEXT NOT NULL,
  with_ref        TEXT,
  nb_fields       TEXT,
  file            TEXT
);

CREATE TABLE IF NOT EXISTS capability_handlers (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  capability_ref  TEXT,
  factory_name    TEXT,
  handler_name    TEXT,
  served          TEXT,
  file            TEXT
);

CREATE TABLE IF NOT EXISTS service_edges (
  id              INTEGER PRIMARY KEY,
  from_node       TEXT NOT NULL,
  to_node         TEXT NOT NULL,
  via             TEXT NOT NULL,
  capability      TEXT
);

CREATE TABLE IF NOT EXISTS outbound_connections (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  target          TEXT,
  via             TEXT,
  capability      TEXT,
  file            TEXT
);

CREATE TABLE IF NOT EXISTS entry_points (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  file            TEXT
);

CREATE TABLE IF NOT EXISTS routes (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  method          TEXT,
  path            TEXT,
  framework       TEXT,
  file            TEXT
);

-- Infrastructure inventory

CREATE TABLE IF NOT EXISTS infra_summary (
  id              INTEGER PRIMARY KEY,
  category        TEXT NOT NULL,
  detail          TEXT NOT NULL,
  repo            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS infra_resources (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  type            TEXT NOT NULL,
  field           TEXT,
  identifier      TEXT,
  file            TEXT
);

CREATE TABLE IF NOT EXISTS sql_tables (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  table_name      TEXT NOT NULL,
  file            TEXT
);

CREATE TABLE IF NOT EXISTS sql_columns (
  id              INTEGER PRIMARY KEY,
  table_id        INTEGER NOT NULL REFERENCES sql_tables(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  type            TEXT
);

-- Product map

CREATE TABLE IF NOT EXISTS products (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  description     TEXT,
  languages       TEXT,
  members         TEXT,
  size_mb         REAL
);

CREATE TABLE IF NOT EXISTS repos (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  language        TEXT,
  deploy_target   TEXT,
  is_monorepo     BOOLEAN DEFAULT FALSE,
  publishes       TEXT,
  role            TEXT,
  description     TEXT,
  same_deps       TEXT,
  cross_deps      TEXT,
  product         TEXT
);

CREATE TABLE IF NOT EXISTS downstream_consumers (
  id              INTEGER PRIMARY KEY,
  repo            TEXT NOT NULL,
  product         TEXT,
  note            TEXT
);

-- Bookkeeping

CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  status          TEXT NOT NULL,
  records         INTEGER DEFAULT 0,
  fingerprint     TEXT,
  error           TEXT
);

CREATE TABLE IF NOT EXISTS meta (
  id              INTEGER PRIMARY KEY,
  key             TEXT NOT NULL,
  value           TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_capabilities_name ON capabilities(name);
CREATE INDEX IF NOT EXISTS idx_capabilities_repo ON capabilities(repo);
CREATE INDEX IF NOT EXISTS idx_handlers_repo ON capability_handlers(repo);
CREATE INDEX IF NOT EXISTS idx_edges_from ON service_edges(from_node);
CREATE INDEX IF NOT EXISTS idx_edges_to ON service_edges(to_node);
CREATE INDEX IF NOT EXISTS idx_connections_repo ON outbound_connections(repo);
CREATE INDEX IF NOT EXISTS idx_infra_resources_repo ON infra_resources(repo);
CREATE INDEX IF NOT EXISTS idx_infra_summary_category ON infra_summary(category);
CREATE INDEX IF NOT EXISTS idx_sql_tables_repo ON sql_tables(repo);
CREATE INDEX IF NOT EXISTS idx_sql_columns_table ON sql_columns(table_id);
CREATE INDEX IF NOT EXISTS idx_repos_name ON repos(name);
`
