package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore implements ContentStore and LexicalIndex on a single SQLite
// database. Entities live in a regular table with vectors as BLOBs; an FTS5
// virtual table alongside provides BM25-ranked keyword search. WAL mode
// allows concurrent readers with the single writer.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var (
	_ ContentStore = (*SQLiteStore)(nil)
	_ LexicalIndex = (*SQLiteStore)(nil)
)

// validateIntegrity checks the database file before opening it for real.
// Returns nil if valid or absent, an error describing corruption otherwise.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Database doesn't exist, will be created
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteStore opens (or creates) the store at path. An empty path creates
// an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			return nil, fmt.Errorf("store at %s failed validation: %w", path, validErr)
		}

		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite; DSN params
	// may be ignored
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Debug("store_opened", slog.String("path", path))
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		embedding BLOB,
		embedding_dims INTEGER NOT NULL DEFAULT 0,
		embedding_model TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_domain ON entities(domain);

	-- FTS5 virtual table for BM25-ranked keyword search.
	-- entity_id and domain are UNINDEXED (stored but not searchable).
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_entities USING fts5(
		entity_id UNINDEXED,
		domain UNINDEXED,
		content,
		tokenize='unicode61'
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// encodeVector serializes a vector as little-endian float32s.
func encodeVector(vec []float32) []byte {
	if vec == nil {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a little-endian float32 blob. Blobs whose length
// is not a multiple of 4 decode to nil.
func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// SaveEntity inserts or updates an entity and keeps the FTS row in sync.
// The searchable text is title plus content.
func (s *SQLiteStore) SaveEntity(ctx context.Context, e *Entity) error {
	if !e.Domain.Valid() {
		return fmt.Errorf("unknown domain %q", e.Domain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if e.ID == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entities (domain, title, content, embedding, embedding_dims, embedding_model, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(e.Domain), e.Title, e.Content, encodeVector(e.Embedding), e.EmbeddingDims, e.EmbeddingModel, now)
		if err != nil {
			return fmt.Errorf("failed to insert entity: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted ID: %w", err)
		}
		e.ID = id
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET domain = ?, title = ?, content = ?, embedding = ?, embedding_dims = ?, embedding_model = ?, updated_at = ?
			 WHERE id = ?`,
			string(e.Domain), e.Title, e.Content, encodeVector(e.Embedding), e.EmbeddingDims, e.EmbeddingModel, now, e.ID); err != nil {
			return fmt.Errorf("failed to update entity %d: %w", e.ID, err)
		}
	}
	e.UpdatedAt = now

	// FTS5 virtual tables don't support REPLACE, so delete first
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fts_entities WHERE entity_id = ?`, e.ID); err != nil {
		return fmt.Errorf("failed to clear FTS entry for %d: %w", e.ID, err)
	}
	searchText := strings.TrimSpace(e.Title + "\n" + e.Content)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO fts_entities (entity_id, domain, content) VALUES (?, ?, ?)`,
		e.ID, string(e.Domain), searchText); err != nil {
		return fmt.Errorf("failed to index entity %d: %w", e.ID, err)
	}

	return tx.Commit()
}

// FindMissingEmbeddings returns entities in the domain with no vector, or a
// vector stored at a dimensionality other than dims. Ordered by ID so
// repeated backfill runs progress deterministically.
func (s *SQLiteStore) FindMissingEmbeddings(ctx context.Context, domain Domain, dims int) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, title, content, embedding, embedding_dims, embedding_model, updated_at
		 FROM entities
		 WHERE domain = ? AND (embedding IS NULL OR embedding_dims != ?)
		 ORDER BY id`,
		string(domain), dims)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing embeddings: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SaveEmbedding stores the vector for an entity. The recorded dimensionality
// is taken from the vector itself.
func (s *SQLiteStore) SaveEmbedding(ctx context.Context, id int64, vector []float32, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET embedding = ?, embedding_dims = ?, embedding_model = ?, updated_at = ? WHERE id = ?`,
		encodeVector(vector), len(vector), model, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to save embedding for %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update for %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("entity %d not found", id)
	}
	return nil
}

// FindByID returns the entity with its stored vector, or nil when absent.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, title, content, embedding, embedding_dims, embedding_model, updated_at
		 FROM entities WHERE id = ?`, id)

	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %d: %w", id, err)
	}
	return e, nil
}

// ListWithEmbeddings returns entities in the domain whose stored vector
// matches dims, ordered by ID.
func (s *SQLiteStore) ListWithEmbeddings(ctx context.Context, domain Domain, dims int) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, title, content, embedding, embedding_dims, embedding_model, updated_at
		 FROM entities
		 WHERE domain = ? AND embedding IS NOT NULL AND embedding_dims = ?
		 ORDER BY id`,
		string(domain), dims)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// CountMissingEmbeddings counts entities across all domains lacking a valid
// vector at dims.
func (s *SQLiteStore) CountMissingEmbeddings(ctx context.Context, dims int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE embedding IS NULL OR embedding_dims != ?`,
		dims).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count missing embeddings: %w", err)
	}
	return count, nil
}

// SearchKeyword runs a BM25-ranked FTS5 query scoped to the domain.
func (s *SQLiteStore) SearchKeyword(ctx context.Context, domain Domain, query string, limit int) ([]KeywordResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	matchQuery := buildMatchQuery(query)
	if matchQuery == "" {
		return []KeywordResult{}, nil
	}

	// FTS5 bm25() returns negative values where lower = better match.
	// ORDER BY score puts best matches first (most negative).
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, bm25(fts_entities) AS score
		 FROM fts_entities
		 WHERE domain = ? AND content MATCH ?
		 ORDER BY score
		 LIMIT ?`,
		string(domain), matchQuery, limit)
	if err != nil {
		// FTS5 errors on malformed match queries; treat as no results
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []KeywordResult{}, nil
		}
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var results []KeywordResult
	for rows.Next() {
		var r KeywordResult
		var score float64
		if err := rows.Scan(&r.ID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		// Negate so higher = better match
		r.Score = -score
		results = append(results, r)
	}
	return results, rows.Err()
}

// buildMatchQuery turns free text into a safe FTS5 MATCH expression by
// quoting each term, so operators and punctuation in user input cannot
// change query semantics.
func buildMatchQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " ")
}

// Close closes the database. Safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	var e Entity
	var domain string
	var blob []byte
	if err := row.Scan(&e.ID, &domain, &e.Title, &e.Content, &blob, &e.EmbeddingDims, &e.EmbeddingModel, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Domain = Domain(domain)
	e.Embedding = decodeVector(blob)
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*Entity, error) {
	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
