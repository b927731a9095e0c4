package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

// MemoryStorage keeps records in a map. Used by the memory and chromem index setups and in tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]models.DocumentRecord
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]models.DocumentRecord)}
}

// PutDocument upserts a record. CreatedAt of an existing record is preserved.
func (m *MemoryStorage) PutDocument(_ context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.Metadata.ID == "" {
		return fmt.Errorf("%w: record id is required", models.ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.records[rec.Metadata.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	stored := *rec
	stored.Metadata = rec.Metadata.Clone()
	m.records[rec.Metadata.ID] = stored
	return nil
}

// GetDocument returns a copy of the record for id.
func (m *MemoryStorage) GetDocument(_ context.Context, id string) (*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	rec.Metadata = rec.Metadata.Clone()
	return &rec, nil
}

// CountDocuments returns the number of records.
func (m *MemoryStorage) CountDocuments(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error { return nil }
