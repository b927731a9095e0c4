// Package vector provides vector indexes with exact k-nearest-neighbour search.
package vector

import (
	"context"

	"github.com/hyperjump/kioku/internal/models"
)

// VectorIndex stores (id, vector, metadata, text) entries and answers nearest-neighbour queries.
// Implementations guarantee that a write to one id is atomic with respect to reads of that id.
type VectorIndex interface {
	// Insert creates or overwrites the entry with entry.ID.
	Insert(ctx context.Context, entry *models.IndexEntry) error
	// InsertBatch validates every entry before writing any of them.
	InsertBatch(ctx context.Context, entries []*models.IndexEntry) error
	// Query returns up to k entries in ascending distance order.
	Query(ctx context.Context, vector []float32, k int) ([]*Match, error)
	// Get returns the entry for id, or ok == false when absent.
	Get(ctx context.Context, id string) (entry *models.IndexEntry, ok bool, err error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Match is a single nearest-neighbour hit. Distance is nil when the backend cannot report it.
type Match struct {
	ID       string
	Text     string
	Metadata models.Metadata
	Distance *float64
}
