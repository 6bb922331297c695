// Package manifest persists per-file fingerprints across ingestion runs.
// The manifest is the sole authority for "has this file changed since the
// last ingest": it is loaded once at run start and committed once, in a
// single transaction, at run end.
package manifest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/corpusflower/corpusflower/internal/domain"
)

// Entry is one manifest row. Entries with StatusFailed never match a live
// fingerprint, so files that yielded no index data (empty text, zero
// chunks) are reconsidered on the next run.
type Entry struct {
	domain.Fingerprint
	Status string
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Fingerprint hashes the full file content and combines it with stat
// metadata. An unreadable file cannot be safely ingested, so I/O errors
// propagate to the caller.
func Fingerprint(path string) (domain.Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return domain.Fingerprint{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return domain.Fingerprint{
		Size:  info.Size(),
		MTime: float64(info.ModTime().UnixNano()) / 1e9,
		Hash:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Changed reports whether a file must be (re-)ingested: no entry, a
// previously failed entry, or any fingerprint field differing.
func Changed(entries map[string]Entry, name string, fp domain.Fingerprint) bool {
	entry, ok := entries[name]
	if !ok {
		return true
	}
	if entry.Status != domain.StatusOK {
		return true
	}
	return entry.Fingerprint != fp
}

func (s *Store) Load(ctx context.Context) (map[string]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, size, mtime, hash, status FROM manifest`)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var name string
		var e Entry
		if err := rows.Scan(&name, &e.Size, &e.MTime, &e.Hash, &e.Status); err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		entries[name] = e
	}
	return entries, rows.Err()
}

// Commit rewrites the whole manifest in one transaction. Called exactly
// once per run, after all files are processed; a crash before this point
// leaves the previous manifest intact so the run is redone.
func (s *Store) Commit(ctx context.Context, entries map[string]Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manifest commit: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM manifest`); err != nil {
		return fmt.Errorf("clear manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO manifest (name, size, mtime, hash, status) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare manifest insert: %w", err)
	}
	defer stmt.Close()

	for name, e := range entries {
		status := e.Status
		if status == "" {
			status = domain.StatusOK
		}
		if _, err := stmt.ExecContext(ctx, name, e.Size, e.MTime, e.Hash, status); err != nil {
			return fmt.Errorf("insert manifest row %s: %w", name, err)
		}
	}
	return tx.Commit()
}
