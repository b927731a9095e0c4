package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

// SQLiteIndex stores entries in a SQLite table and scores them in Go on every query.
// The index dimension is recorded in the database; reopening with another dimension fails.
type SQLiteIndex struct {
	db         *sql.DB
	dimensions int
}

// NewSQLiteIndex opens or creates the entries table in the database at dbPath.
func NewSQLiteIndex(dbPath string, dimensions int) (*SQLiteIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrInvalidArgument)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	idx := &SQLiteIndex{db: db, dimensions: dimensions}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_entries (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT NOT NULL,
		embedding BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vector_entries_seq ON vector_entries(seq);

	CREATE TABLE IF NOT EXISTS vector_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize vector schema: %w", err)
	}
	var stored string
	err := s.db.QueryRow(`SELECT value FROM vector_meta WHERE key = 'dimensions'`).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec(`INSERT INTO vector_meta (key, value) VALUES ('dimensions', ?)`, strconv.Itoa(s.dimensions))
		return err
	}
	if err != nil {
		return err
	}
	if stored != strconv.Itoa(s.dimensions) {
		return fmt.Errorf("%w: database holds %s-dimensional vectors, index expects %d",
			models.ErrDimensionMismatch, stored, s.dimensions)
	}
	return nil
}

// Type returns the index type identifier.
func (s *SQLiteIndex) Type() string {
	return string(IndexTypeSQLite)
}

// Dimensions returns the fixed vector length.
func (s *SQLiteIndex) Dimensions() int {
	return s.dimensions
}

// Insert creates or overwrites one entry.
func (s *SQLiteIndex) Insert(ctx context.Context, entry *models.IndexEntry) error {
	return s.InsertBatch(ctx, []*models.IndexEntry{entry})
}

// InsertBatch validates all entries and writes them in one transaction.
// An overwritten entry keeps its original sequence number.
func (s *SQLiteIndex) InsertBatch(ctx context.Context, entries []*models.IndexEntry) error {
	type row struct {
		id, text, metadata string
		embedding          []byte
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		if err := validateEntry(e, s.dimensions); err != nil {
			return err
		}
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
		}
		rows = append(rows, row{id: e.ID, text: e.Text, metadata: string(metadataJSON), embedding: EncodeEmbedding(e.Vector)})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_entries (id, seq, text, metadata, embedding)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM vector_entries), ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.id, r.text, r.metadata, r.embedding); err != nil {
			return fmt.Errorf("failed to insert %s: %w", r.id, err)
		}
	}
	return tx.Commit()
}

// Query scans every entry and returns the k closest to vector.
func (s *SQLiteIndex) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if err := validateQuery(vector, k, s.dimensions); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, seq, text, metadata, embedding FROM vector_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cands []candidate
	for rows.Next() {
		var seq int64
		e, err := scanEntry(rows, &seq)
		if err != nil {
			return nil, err
		}
		cands = append(cands, candidate{
			entry:    e,
			distance: CosineDistance(vector, e.Vector),
			seq:      seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topK(cands, k), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner, seq *int64) (*models.IndexEntry, error) {
	var e models.IndexEntry
	var metadataJSON string
	var blob []byte
	if err := sc.Scan(&e.ID, seq, &e.Text, &metadataJSON, &blob); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", e.ID, err)
	}
	vec, err := DecodeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Vector = vec
	return &e, nil
}

// Get returns the entry with the given id.
func (s *SQLiteIndex) Get(ctx context.Context, id string) (*models.IndexEntry, bool, error) {
	var seq int64
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT id, seq, text, metadata, embedding FROM vector_entries WHERE id = ?`, id), &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Size returns the number of entries, or 0 if the count fails.
func (s *SQLiteIndex) Size() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM vector_entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
