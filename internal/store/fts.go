package store

import (
	"context"
	"fmt"
	"strings"
)

// FTSIndex implements KeywordIndex with the SQLite FTS5 table stored in the
// corpus database. Ranking is FTS5 bm25 over porter-stemmed text.
type FTSIndex struct {
	corpus *SQLiteCorpus
}

var _ KeywordIndex = (*FTSIndex)(nil)

// NewFTSIndex creates a keyword index over the corpus database.
func NewFTSIndex(c *SQLiteCorpus) *FTSIndex {
	return &FTSIndex{corpus: c}
}

// Index implements KeywordIndex. Existing rows are replaced.
func (f *FTSIndex) Index(ctx context.Context, docs []KeywordDoc) error {
	if len(docs) == 0 {
		return nil
	}

	c := f.corpus
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 virtual tables don't support REPLACE, so delete first.
	deleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM narration_fts WHERE rowid = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, `INSERT INTO narration_fts (rowid, text) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS statement: %w", err)
	}
	defer insertStmt.Close()

	for _, doc := range docs {
		if _, err := deleteStmt.ExecContext(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete existing document %d: %w", doc.ID, err)
		}
		if _, err := insertStmt.ExecContext(ctx, doc.ID, doc.Text); err != nil {
			return fmt.Errorf("failed to index document %d: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// Search implements KeywordIndex.
func (f *FTSIndex) Search(ctx context.Context, query string, filter NarrationFilter, limit int) ([]KeywordHit, error) {
	terms := queryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []KeywordHit{}, nil
	}

	c := f.corpus
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	args := []any{ftsMatchExpr(terms)}
	sb.WriteString(`
		SELECT narration_fts.rowid, bm25(narration_fts) AS score
		FROM narration_fts
		JOIN narrations n ON n.id = narration_fts.rowid
		WHERE narration_fts MATCH ?`)
	if len(filter.Collections) > 0 {
		sb.WriteString(` AND n.collection IN (` + placeholders(len(filter.Collections)) + `)`)
		for _, col := range filter.Collections {
			args = append(args, string(col))
		}
	}
	if len(filter.Grades) > 0 {
		sb.WriteString(` AND n.grade_category IN (` + placeholders(len(filter.Grades)) + `)`)
		for _, g := range filter.Grades {
			args = append(args, g.String())
		}
	}
	// bm25() is negative; lower is better.
	sb.WriteString(` ORDER BY score, narration_fts.rowid LIMIT ?`)
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		if isFTSSyntaxError(err) {
			return []KeywordHit{}, nil
		}
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	hits := make([]KeywordHit, 0, limit)
	for rows.Next() {
		var (
			id    int64
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		hits = append(hits, KeywordHit{ID: id, Score: -score})
	}
	return hits, rows.Err()
}

func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5:") || strings.Contains(msg, "syntax error")
}

// Clear implements KeywordIndex.
func (f *FTSIndex) Clear(ctx context.Context) error {
	c := f.corpus
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM narration_fts`); err != nil {
		return fmt.Errorf("failed to clear keyword index: %w", err)
	}
	return nil
}

// Close is a no-op; the corpus owns the database.
func (f *FTSIndex) Close() error { return nil }
