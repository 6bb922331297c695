// Package store opens the embedded sqlite database shared by the
// manifest, semantic-graph, and concordance stores. A keyed store avoids
// the O(n) whole-file rewrites a JSON file would need and keeps appends
// safe under the single-ingester assumption.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS manifest (
	name   TEXT PRIMARY KEY,
	size   INTEGER NOT NULL,
	mtime  REAL NOT NULL,
	hash   TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'ok'
);

CREATE TABLE IF NOT EXISTS graph_nodes (
	id       TEXT PRIMARY KEY,
	type     TEXT NOT NULL,
	title    TEXT,
	language TEXT
);

-- Edges are undirected; (pair_lo, pair_hi) is the canonical sorted key,
-- so at most one edge exists per unordered pair regardless of the order
-- the endpoints were inserted in.
CREATE TABLE IF NOT EXISTS graph_edges (
	pair_lo TEXT NOT NULL,
	pair_hi TEXT NOT NULL,
	source  TEXT NOT NULL,
	target  TEXT NOT NULL,
	weight  REAL NOT NULL,
	PRIMARY KEY (pair_lo, pair_hi)
);

CREATE TABLE IF NOT EXISTS concordance (
	term        TEXT NOT NULL,
	doc_id      TEXT NOT NULL,
	chunk_id    TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	language    TEXT,
	title       TEXT
);

CREATE INDEX IF NOT EXISTS idx_concordance_term ON concordance(term);
`

// Open creates (if needed) and opens the database at dir/corpusflower.db
// using the pure-Go sqlite driver. The connection pool is pinned to a
// single connection: there is one writer per process and WAL handles the
// readers.
func Open(dir string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, "corpusflower.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores some DSN params; set pragmas explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}
