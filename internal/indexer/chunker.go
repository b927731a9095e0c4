// Package indexer provides document chunking.
package indexer

import (
	"fmt"

	"github.com/hyperjump/kioku/internal/models"
)

// Chunker defaults, in characters.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultMinChunkLength = 100
)

// Chunker splits text into overlapping character windows.
type Chunker struct {
	chunkSize      int
	chunkOverlap   int
	minChunkLength int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the window size in characters.
func WithChunkSize(n int) ChunkerOption {
	return func(c *Chunker) { c.chunkSize = n }
}

// WithOverlap sets how many characters consecutive windows share.
func WithOverlap(n int) ChunkerOption {
	return func(c *Chunker) { c.chunkOverlap = n }
}

// WithMinChunkLength sets the length below which a window is dropped.
func WithMinChunkLength(n int) ChunkerOption {
	return func(c *Chunker) { c.minChunkLength = n }
}

// NewChunker creates a chunker. It fails unless chunkSize > chunkOverlap >= 0.
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	c := &Chunker{
		chunkSize:      DefaultChunkSize,
		chunkOverlap:   DefaultChunkOverlap,
		minChunkLength: DefaultMinChunkLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidArgument, c.chunkSize)
	}
	if c.chunkOverlap < 0 || c.chunkOverlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", models.ErrInvalidArgument, c.chunkSize, c.chunkOverlap)
	}
	if c.minChunkLength < 0 {
		return nil, fmt.Errorf("%w: min chunk length must not be negative", models.ErrInvalidArgument)
	}
	return c, nil
}

// ChunkSize returns the window size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the window overlap.
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// ChunkID returns the id of the index-th chunk of a document.
func ChunkID(parentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", parentID, index)
}

// Chunk splits content into windows carrying the parent's metadata plus chunk_id and chunk_index.
// Windows shorter than the minimum length are skipped and do not consume an index.
func (c *Chunker) Chunk(content string, base models.Metadata) ([]*models.Chunk, error) {
	if base.ID == "" {
		return nil, fmt.Errorf("%w: base metadata has no id", models.ErrInvalidArgument)
	}
	runes := []rune(content)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	step := c.chunkSize - c.chunkOverlap
	var chunks []*models.Chunk
	for start := 0; start < n; start += step {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		if end-start >= c.minChunkLength {
			idx := len(chunks)
			id := ChunkID(base.ID, idx)
			chunks = append(chunks, &models.Chunk{
				ID:         id,
				DocumentID: base.ID,
				Index:      idx,
				Content:    string(runes[start:end]),
				Metadata:   base.ForChunk(id, idx),
			})
		}
		if end >= n {
			break
		}
	}
	return chunks, nil
}
