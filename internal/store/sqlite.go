package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/criterion/internal/corpus"
)

// maxParams bounds the number of IN (...) placeholders per statement.
const maxParams = 500

// SQLiteCorpus stores verses, narrations and their embeddings in SQLite.
// The narration FTS5 table lives in the same database (see FTSIndex).
type SQLiteCorpus struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ Corpus = (*SQLiteCorpus)(nil)

// CorpusStats summarizes stored passages.
type CorpusStats struct {
	Verses              int
	VerseEmbeddings     int
	Narrations          int
	NarrationEmbeddings int
	ByCollection        map[corpus.Collection]int
	EmbeddingModel      string
	EmbeddingDimensions int
}

// checkIntegrity runs a quick check on an existing database file.
// A missing file is fine; it will be created.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteCorpus opens or creates the corpus database at path.
// An empty path creates an in-memory database for testing.
func NewSQLiteCorpus(path string) (*SQLiteCorpus, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		if err := checkIntegrity(path); err != nil {
			slog.Error("corpus_db_corrupted",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("corpus database %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: pragmas are per-connection and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &SQLiteCorpus{db: db, path: path}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCorpus) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS verses (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		chapter             INTEGER NOT NULL,
		verse               INTEGER NOT NULL,
		text_native         TEXT NOT NULL DEFAULT '',
		text_default        TEXT NOT NULL,
		chapter_name        TEXT NOT NULL DEFAULT '',
		chapter_name_native TEXT NOT NULL DEFAULT '',
		UNIQUE (chapter, verse)
	);

	CREATE TABLE IF NOT EXISTS narrations (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		collection     TEXT NOT NULL,
		number         INTEGER NOT NULL,
		reference      TEXT NOT NULL DEFAULT '',
		text_native    TEXT NOT NULL DEFAULT '',
		text_default   TEXT NOT NULL,
		grade          TEXT NOT NULL DEFAULT '',
		grade_category TEXT NOT NULL DEFAULT 'unknown',
		book_number    INTEGER NOT NULL DEFAULT 0,
		book_name      TEXT NOT NULL DEFAULT '',
		chapter_number INTEGER NOT NULL DEFAULT 0,
		chapter_name   TEXT NOT NULL DEFAULT '',
		narrator_chain TEXT NOT NULL DEFAULT '',
		source_url     TEXT NOT NULL DEFAULT '',
		UNIQUE (collection, number)
	);
	CREATE INDEX IF NOT EXISTS idx_narrations_filter ON narrations(collection, grade_category);

	CREATE TABLE IF NOT EXISTS verse_embeddings (
		verse_id    INTEGER PRIMARY KEY REFERENCES verses(id) ON DELETE CASCADE,
		dimensions  INTEGER NOT NULL,
		vector      BLOB NOT NULL,
		source_text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS narration_embeddings (
		narration_id INTEGER PRIMARY KEY REFERENCES narrations(id) ON DELETE CASCADE,
		dimensions   INTEGER NOT NULL,
		vector       BLOB NOT NULL,
		source_text  TEXT NOT NULL
	);

	-- rowid is the narration id
	CREATE VIRTUAL TABLE IF NOT EXISTS narration_fts USING fts5(
		text,
		tokenize='porter unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS narrations_fts_delete AFTER DELETE ON narrations BEGIN
		DELETE FROM narration_fts WHERE rowid = old.id;
	END;

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Path returns the database file path, or "" for in-memory databases.
func (c *SQLiteCorpus) Path() string { return c.path }

func (c *SQLiteCorpus) check() error {
	if c.closed {
		return fmt.Errorf("corpus is closed")
	}
	return nil
}

// SaveVerses inserts or updates verses with their embeddings in one
// transaction and sets each verse's ID. vectors must line up with verses.
func (c *SQLiteCorpus) SaveVerses(ctx context.Context, verses []*Verse, vectors [][]float32) error {
	if len(verses) != len(vectors) {
		return fmt.Errorf("verses and vectors length mismatch: %d vs %d", len(verses), len(vectors))
	}
	if len(verses) == 0 {
		return nil
	}

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

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO verses (chapter, verse, text_native, text_default, chapter_name, chapter_name_native)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chapter, verse) DO UPDATE SET
			text_native = excluded.text_native,
			text_default = excluded.text_default,
			chapter_name = excluded.chapter_name,
			chapter_name_native = excluded.chapter_name_native
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("failed to prepare verse statement: %w", err)
	}
	defer upsert.Close()

	embStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO verse_embeddings (verse_id, dimensions, vector, source_text)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare embedding statement: %w", err)
	}
	defer embStmt.Close()

	for i, v := range verses {
		err := upsert.QueryRowContext(ctx,
			v.Chapter, v.Number, v.TextNative, v.TextDefault, v.ChapterName, v.ChapterNameNative,
		).Scan(&v.ID)
		if err != nil {
			return fmt.Errorf("failed to save verse %d:%d: %w", v.Chapter, v.Number, err)
		}
		if _, err := embStmt.ExecContext(ctx, v.ID, len(vectors[i]), encodeVector(vectors[i]), v.TextDefault); err != nil {
			return fmt.Errorf("failed to save embedding for verse %d:%d: %w", v.Chapter, v.Number, err)
		}
	}

	return tx.Commit()
}

// SaveNarrations inserts or updates narrations with their embeddings in one
// transaction and sets each narration's ID. vectors must line up with ns.
func (c *SQLiteCorpus) SaveNarrations(ctx context.Context, ns []*Narration, vectors [][]float32) error {
	if len(ns) != len(vectors) {
		return fmt.Errorf("narrations and vectors length mismatch: %d vs %d", len(ns), len(vectors))
	}
	if len(ns) == 0 {
		return nil
	}

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

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO narrations (collection, number, reference, text_native, text_default,
			grade, grade_category, book_number, book_name, chapter_number, chapter_name,
			narrator_chain, source_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, number) DO UPDATE SET
			reference = excluded.reference,
			text_native = excluded.text_native,
			text_default = excluded.text_default,
			grade = excluded.grade,
			grade_category = excluded.grade_category,
			book_number = excluded.book_number,
			book_name = excluded.book_name,
			chapter_number = excluded.chapter_number,
			chapter_name = excluded.chapter_name,
			narrator_chain = excluded.narrator_chain,
			source_url = excluded.source_url
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("failed to prepare narration statement: %w", err)
	}
	defer upsert.Close()

	embStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO narration_embeddings (narration_id, dimensions, vector, source_text)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare embedding statement: %w", err)
	}
	defer embStmt.Close()

	for i, n := range ns {
		err := upsert.QueryRowContext(ctx,
			string(n.Collection), n.Number, n.Reference, n.TextNative, n.TextDefault,
			n.Grade, n.GradeCategory.String(), n.BookNumber, n.BookName, n.ChapterNumber, n.ChapterName,
			n.NarratorChain, n.SourceURL,
		).Scan(&n.ID)
		if err != nil {
			return fmt.Errorf("failed to save narration %s/%d: %w", n.Collection, n.Number, err)
		}
		if _, err := embStmt.ExecContext(ctx, n.ID, len(vectors[i]), encodeVector(vectors[i]), n.TextDefault); err != nil {
			return fmt.Errorf("failed to save embedding for narration %s/%d: %w", n.Collection, n.Number, err)
		}
	}

	return tx.Commit()
}

const verseColumns = `id, chapter, verse, text_native, text_default, chapter_name, chapter_name_native`

func scanVerse(row interface{ Scan(...any) error }) (*Verse, error) {
	v := &Verse{}
	err := row.Scan(&v.ID, &v.Chapter, &v.Number, &v.TextNative, &v.TextDefault, &v.ChapterName, &v.ChapterNameNative)
	return v, err
}

const narrationColumns = `id, collection, number, reference, text_native, text_default, grade,
	grade_category, book_number, book_name, chapter_number, chapter_name, narrator_chain, source_url`

func scanNarration(row interface{ Scan(...any) error }) (*Narration, error) {
	n := &Narration{}
	var collection, category string
	err := row.Scan(&n.ID, &collection, &n.Number, &n.Reference, &n.TextNative, &n.TextDefault, &n.Grade,
		&category, &n.BookNumber, &n.BookName, &n.ChapterNumber, &n.ChapterName, &n.NarratorChain, &n.SourceURL)
	n.Collection = corpus.Collection(collection)
	n.GradeCategory = corpus.ParseGradeCategory(category)
	return n, err
}

// GetVerse implements Corpus.
func (c *SQLiteCorpus) GetVerse(ctx context.Context, chapter, verse int) (*Verse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	row := c.db.QueryRowContext(ctx,
		`SELECT `+verseColumns+` FROM verses WHERE chapter = ? AND verse = ?`, chapter, verse)
	v, err := scanVerse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verse %d:%d: %w", chapter, verse, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verse %d:%d: %w", chapter, verse, err)
	}
	return v, nil
}

// VerseRange implements Corpus.
func (c *SQLiteCorpus) VerseRange(ctx context.Context, chapter, start, end int) ([]*Verse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	if start > end {
		return []*Verse{}, nil
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT `+verseColumns+` FROM verses
		 WHERE chapter = ? AND verse BETWEEN ? AND ?
		 ORDER BY verse`, chapter, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query verse range %d:%d-%d: %w", chapter, start, end, err)
	}
	defer rows.Close()

	verses := make([]*Verse, 0, end-start+1)
	for rows.Next() {
		v, err := scanVerse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verse: %w", err)
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// VersesByID implements Corpus.
func (c *SQLiteCorpus) VersesByID(ctx context.Context, ids []int64) (map[int64]*Verse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	out := make(map[int64]*Verse, len(ids))
	err := forEachChunk(ids, func(chunk []int64) error {
		rows, err := c.db.QueryContext(ctx,
			`SELECT `+verseColumns+` FROM verses WHERE id IN (`+placeholders(len(chunk))+`)`,
			int64Args(chunk)...)
		if err != nil {
			return fmt.Errorf("failed to query verses: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scanVerse(rows)
			if err != nil {
				return fmt.Errorf("failed to scan verse: %w", err)
			}
			out[v.ID] = v
		}
		return rows.Err()
	})
	return out, err
}

// EmbeddingsByID implements Corpus.
func (c *SQLiteCorpus) EmbeddingsByID(ctx context.Context, kind Kind, ids []int64) (map[int64][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	var table, column string
	switch kind {
	case KindVerse:
		table, column = "verse_embeddings", "verse_id"
	case KindNarration:
		table, column = "narration_embeddings", "narration_id"
	default:
		return nil, fmt.Errorf("unknown corpus kind %q", kind)
	}

	out := make(map[int64][]float32, len(ids))
	err := forEachChunk(ids, func(chunk []int64) error {
		rows, err := c.db.QueryContext(ctx,
			`SELECT `+column+`, vector FROM `+table+` WHERE `+column+` IN (`+placeholders(len(chunk))+`)`,
			int64Args(chunk)...)
		if err != nil {
			return fmt.Errorf("failed to query %s embeddings: %w", kind, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id   int64
				blob []byte
			)
			if err := rows.Scan(&id, &blob); err != nil {
				return fmt.Errorf("failed to scan embedding: %w", err)
			}
			v, err := decodeVector(blob)
			if err != nil {
				return fmt.Errorf("embedding %s/%d: %w", kind, id, err)
			}
			out[id] = v
		}
		return rows.Err()
	})
	return out, err
}

// NarrationsByID implements Corpus.
func (c *SQLiteCorpus) NarrationsByID(ctx context.Context, ids []int64) (map[int64]*Narration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	out := make(map[int64]*Narration, len(ids))
	err := forEachChunk(ids, func(chunk []int64) error {
		rows, err := c.db.QueryContext(ctx,
			`SELECT `+narrationColumns+` FROM narrations WHERE id IN (`+placeholders(len(chunk))+`)`,
			int64Args(chunk)...)
		if err != nil {
			return fmt.Errorf("failed to query narrations: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			n, err := scanNarration(rows)
			if err != nil {
				return fmt.Errorf("failed to scan narration: %w", err)
			}
			out[n.ID] = n
		}
		return rows.Err()
	})
	return out, err
}

// GetNarration returns one narration by its natural key or ErrNotFound.
func (c *SQLiteCorpus) GetNarration(ctx context.Context, collection corpus.Collection, number int) (*Narration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	row := c.db.QueryRowContext(ctx,
		`SELECT `+narrationColumns+` FROM narrations WHERE collection = ? AND number = ?`,
		string(collection), number)
	n, err := scanNarration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("narration %s/%d: %w", collection, number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get narration %s/%d: %w", collection, number, err)
	}
	return n, nil
}

// Embeddings streams every stored embedding of a corpus kind in ascending
// passage ID order. fn must not call back into the corpus.
func (c *SQLiteCorpus) Embeddings(ctx context.Context, kind Kind, fn func(EmbeddingRecord) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return err
	}

	var query string
	switch kind {
	case KindVerse:
		query = `SELECT verse_id, '', '', vector FROM verse_embeddings ORDER BY verse_id`
	case KindNarration:
		query = `SELECT e.narration_id, n.collection, n.grade_category, e.vector
		         FROM narration_embeddings e JOIN narrations n ON n.id = e.narration_id
		         ORDER BY e.narration_id`
	default:
		return fmt.Errorf("unknown corpus kind %q", kind)
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query %s embeddings: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec        = EmbeddingRecord{Kind: kind}
			collection string
			category   string
			blob       []byte
		)
		if err := rows.Scan(&rec.ID, &collection, &category, &blob); err != nil {
			return fmt.Errorf("failed to scan embedding: %w", err)
		}
		rec.Vector, err = decodeVector(blob)
		if err != nil {
			return fmt.Errorf("embedding %s/%d: %w", kind, rec.ID, err)
		}
		if kind == KindNarration {
			rec.Collection = corpus.Collection(collection)
			rec.GradeCategory = corpus.ParseGradeCategory(category)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Clear deletes every passage of a corpus kind. Embeddings and FTS rows
// are removed by cascade.
func (c *SQLiteCorpus) Clear(ctx context.Context, kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}

	var table string
	switch kind {
	case KindVerse:
		table = "verses"
	case KindNarration:
		table = "narrations"
	default:
		return fmt.Errorf("unknown corpus kind %q", kind)
	}

	res, err := c.db.ExecContext(ctx, `DELETE FROM `+table)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	slog.Info("corpus_cleared", slog.String("kind", string(kind)), slog.Int64("rows", n))
	return nil
}

// Stats returns passage and embedding counts.
func (c *SQLiteCorpus) Stats(ctx context.Context) (*CorpusStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return nil, err
	}

	stats := &CorpusStats{ByCollection: make(map[corpus.Collection]int)}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM verses`, &stats.Verses},
		{`SELECT COUNT(*) FROM verse_embeddings`, &stats.VerseEmbeddings},
		{`SELECT COUNT(*) FROM narrations`, &stats.Narrations},
		{`SELECT COUNT(*) FROM narration_embeddings`, &stats.NarrationEmbeddings},
	}
	for _, q := range counts {
		if err := c.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	rows, err := c.db.QueryContext(ctx, `SELECT collection, COUNT(*) FROM narrations GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("failed to count collections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			collection string
			n          int
		)
		if err := rows.Scan(&collection, &n); err != nil {
			return nil, fmt.Errorf("failed to scan collection count: %w", err)
		}
		stats.ByCollection[corpus.Collection(collection)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.EmbeddingModel, _ = c.getState(ctx, StateKeyEmbeddingModel)
	if dims, _ := c.getState(ctx, StateKeyEmbeddingDimensions); dims != "" {
		stats.EmbeddingDimensions, _ = strconv.Atoi(dims)
	}
	return stats, nil
}

// GetState returns a state value, or "" when unset.
func (c *SQLiteCorpus) GetState(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.check(); err != nil {
		return "", err
	}
	return c.getState(ctx, key)
}

func (c *SQLiteCorpus) getState(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState stores a state value.
func (c *SQLiteCorpus) SetState(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// CheckEmbedder records the embedder on a corpus that has none yet and
// otherwise verifies it with VerifyEmbedder.
func (c *SQLiteCorpus) CheckEmbedder(ctx context.Context, model string, dims int) error {
	storedDims, err := c.GetState(ctx, StateKeyEmbeddingDimensions)
	if err != nil {
		return err
	}
	if storedDims == "" {
		if err := c.SetState(ctx, StateKeyEmbeddingModel, model); err != nil {
			return err
		}
		return c.SetState(ctx, StateKeyEmbeddingDimensions, strconv.Itoa(dims))
	}
	return c.VerifyEmbedder(ctx, model, dims)
}

// VerifyEmbedder reports whether vectors from the given model and dimension
// are comparable with the stored ones. A corpus with no recorded embedder
// accepts any. Returns ErrDimensionMismatch or ErrModelMismatch.
func (c *SQLiteCorpus) VerifyEmbedder(ctx context.Context, model string, dims int) error {
	storedDims, err := c.GetState(ctx, StateKeyEmbeddingDimensions)
	if err != nil {
		return err
	}
	if storedDims == "" {
		return nil
	}

	expected, err := strconv.Atoi(storedDims)
	if err != nil {
		return fmt.Errorf("invalid stored embedding dimension %q: %w", storedDims, err)
	}
	if expected != dims {
		return ErrDimensionMismatch{Expected: expected, Got: dims}
	}

	storedModel, err := c.GetState(ctx, StateKeyEmbeddingModel)
	if err != nil {
		return err
	}
	if storedModel != "" && storedModel != model {
		return ErrModelMismatch{Stored: storedModel, Got: model}
	}
	return nil
}

// Close closes the database.
func (c *SQLiteCorpus) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func forEachChunk(ids []int64, fn func([]int64) error) error {
	for start := 0; start < len(ids); start += maxParams {
		if err := fn(ids[start:min(len(ids), start+maxParams)]); err != nil {
			return err
		}
	}
	return nil
}
