package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		metadata TEXT NOT NULL,
		chunked INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// PutDocument upserts a record. CreatedAt of an existing record is preserved.
func (s *SQLiteStorage) PutDocument(ctx context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.Metadata.ID == "" {
		return fmt.Errorf("%w: record id is required", models.ErrInvalidArgument)
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, metadata, chunked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			metadata = excluded.metadata,
			chunked = excluded.chunked,
			updated_at = excluded.updated_at`,
		rec.Metadata.ID, string(metadataJSON), rec.Chunked, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", rec.Metadata.ID, err)
	}
	return nil
}

// GetDocument returns a record by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	var metadataJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT metadata, chunked, created_at, updated_at FROM documents WHERE id = ?`, id,
	).Scan(&metadataJSON, &rec.Chunked, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &rec, nil
}

// CountDocuments returns the number of stored records.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
