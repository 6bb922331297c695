// Package concordance keeps the per-document term-occurrence log.
// Retrieval never consults it; it exists for later lexicon tooling.
package concordance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/corpusflower/corpusflower/internal/domain"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes a batch of occurrences in one transaction. Called once
// per document during ingestion to keep file I/O out of inner loops.
func (s *Store) Append(ctx context.Context, occurrences []domain.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin concordance append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO concordance (term, doc_id, chunk_id, chunk_index, language, title)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare concordance insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range occurrences {
		if _, err := stmt.ExecContext(ctx, o.Term, o.DocID, o.ChunkID, o.ChunkIndex, o.Language, o.Title); err != nil {
			return fmt.Errorf("insert occurrence %q: %w", o.Term, err)
		}
	}
	return tx.Commit()
}

// DeleteByDoc removes a document's occurrences so re-ingestion does not
// accumulate duplicates.
func (s *Store) DeleteByDoc(ctx context.Context, docID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM concordance WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete occurrences of %s: %w", docID, err)
	}
	return nil
}

// CountByTerm reports how many occurrences a term has; used for
// inspection and tests.
func (s *Store) CountByTerm(ctx context.Context, term string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM concordance WHERE term = ?`, term).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count occurrences of %q: %w", term, err)
	}
	return n, nil
}
