// Package graph persists the semantic graph: one node per document,
// weighted undirected edges between semantically similar pairs.
package graph

import (
	"context"
	"database/sql"
	"fmt"
)

type Node struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Language string `json:"language"`
}

type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

type Snapshot struct {
	Nodes map[string]Node `json:"nodes"`
	Edges []Edge          `json:"edges"`
}

// Candidate is a similar document found by the docs-collection neighbor
// query. Similarity is already clamped to [0, 1] by the caller.
type Candidate struct {
	ID         string
	Similarity float64
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertNode replaces or creates the document's node.
func (s *Store) UpsertNode(ctx context.Context, id, title, language string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO graph_nodes (id, type, title, language) VALUES (?, 'document', ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, language = excluded.language`,
		id, title, language)
	if err != nil {
		return fmt.Errorf("upsert graph node %s: %w", id, err)
	}
	return nil
}

// AddEdges inserts one undirected edge per candidate. Self-references
// are skipped; the canonical (min, max) pair key plus INSERT OR IGNORE
// guarantees at most one edge per unordered pair, whichever insertion
// order the endpoints arrive in.
func (s *Store) AddEdges(ctx context.Context, docID string, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edge insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO graph_edges (pair_lo, pair_hi, source, target, weight)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candidates {
		if c.ID == docID {
			continue
		}
		lo, hi := docID, c.ID
		if lo > hi {
			lo, hi = hi, lo
		}
		if _, err := stmt.ExecContext(ctx, lo, hi, docID, c.ID, c.Similarity); err != nil {
			return fmt.Errorf("insert edge %s-%s: %w", docID, c.ID, err)
		}
	}
	return tx.Commit()
}

// Snapshot returns the whole graph for inspection.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Nodes: make(map[string]Node), Edges: []Edge{}}

	rows, err := s.db.QueryContext(ctx, `SELECT id, type, title, language FROM graph_nodes`)
	if err != nil {
		return snap, fmt.Errorf("read graph nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n Node
		var title, language sql.NullString
		if err := rows.Scan(&n.ID, &n.Type, &title, &language); err != nil {
			return snap, fmt.Errorf("scan graph node: %w", err)
		}
		n.Title = title.String
		n.Language = language.String
		snap.Nodes[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT source, target, weight FROM graph_edges ORDER BY pair_lo, pair_hi`)
	if err != nil {
		return snap, fmt.Errorf("read graph edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e Edge
		if err := edgeRows.Scan(&e.Source, &e.Target, &e.Weight); err != nil {
			return snap, fmt.Errorf("scan graph edge: %w", err)
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap, edgeRows.Err()
}
