// Package models defines core data structures for documents, chunks, index entries and search results.
package models

import "time"

// DocumentInput is the input for ingesting a document. ID is generated when empty.
type DocumentInput struct {
	ID       string         `json:"id,omitempty"`
	Filename string         `json:"filename"`
	Content  string         `json:"content"`
	FileType string         `json:"file_type,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk is a contiguous slice of a document's content.
type Chunk struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Index      int      `json:"chunk_index"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata"`
}

// DocumentRecord is what the store remembers about an ingested document. For chunked
// documents Metadata.ChunkIDs lists the chunk ids in order; the parent has no vector.
type DocumentRecord struct {
	Metadata  Metadata  `json:"metadata"`
	Chunked   bool      `json:"chunked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndexEntry is the unit stored in a vector index.
type IndexEntry struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"-"`
	Metadata Metadata  `json:"metadata"`
	Text     string    `json:"document"`
}
