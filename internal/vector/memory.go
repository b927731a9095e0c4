package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kioku/internal/models"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Entries live in insertion order; an overwrite replaces the entry in its original slot.
type MemoryIndex struct {
	dimensions int
	entries    []*models.IndexEntry
	slots      map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrInvalidArgument)
	}
	return &MemoryIndex{
		dimensions: dimensions,
		slots:      make(map[string]int),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the fixed vector length.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Insert creates or overwrites one entry.
func (m *MemoryIndex) Insert(ctx context.Context, entry *models.IndexEntry) error {
	return m.InsertBatch(ctx, []*models.IndexEntry{entry})
}

// InsertBatch validates all entries, then writes them under one lock.
func (m *MemoryIndex) InsertBatch(ctx context.Context, entries []*models.IndexEntry) error {
	for _, e := range entries {
		if err := validateEntry(e, m.dimensions); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		stored := cloneEntry(e)
		if slot, ok := m.slots[e.ID]; ok {
			m.entries[slot] = stored
			continue
		}
		m.slots[e.ID] = len(m.entries)
		m.entries = append(m.entries, stored)
	}
	return nil
}

// Query returns the k entries closest to vector.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if err := validateQuery(vector, k, m.dimensions); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cands := make([]candidate, len(m.entries))
	for i, e := range m.entries {
		cands[i] = candidate{
			entry:    e,
			distance: CosineDistance(vector, e.Vector),
			seq:      int64(i),
		}
	}
	return topK(cands, k), nil
}

// Get returns a copy of the entry with the given id.
func (m *MemoryIndex) Get(_ context.Context, id string) (*models.IndexEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, false, nil
	}
	return cloneEntry(m.entries[slot]), true, nil
}

// Size returns the number of entries in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
