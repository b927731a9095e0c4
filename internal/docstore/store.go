// Package docstore ingests documents into a vector index and answers similarity queries.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
)

// Store defaults.
const (
	DefaultChunkThreshold = 1000
	DefaultConcurrency    = 4
	DefaultBatchSize      = 16
)

// Store orchestrates chunking, embedding and indexing. Documents longer than the chunk
// threshold are indexed only through their chunks; shorter ones as a single entry.
type Store struct {
	index     vector.VectorIndex
	embedder  embedding.Embedder
	records   storage.Storage
	chunker   *indexer.Chunker
	extractor *extract.Extractor
	locks     *keyedMutex

	threshold   int
	concurrency int
	batchSize   int
	newID       func() string
	logger      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithChunker replaces the default 1000/200 chunker.
func WithChunker(c *indexer.Chunker) Option {
	return func(s *Store) { s.chunker = c }
}

// WithChunkThreshold sets the length above which documents are chunked.
func WithChunkThreshold(n int) Option {
	return func(s *Store) { s.threshold = n }
}

// WithConcurrency bounds how many embedding batches run at once during ingestion.
func WithConcurrency(n int) Option {
	return func(s *Store) { s.concurrency = n }
}

// WithBatchSize sets how many chunks are sent to the embedder per call.
func WithBatchSize(n int) Option {
	return func(s *Store) { s.batchSize = n }
}

// WithIDGenerator sets the generator for documents ingested without an id.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithLogger sets a logger for ingestion and search events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store over index and embedder. records may be nil, in which case
// ingestion records are kept in memory. The embedder is wrapped with embedding.Checked.
func New(index vector.VectorIndex, embedder embedding.Embedder, records storage.Storage, opts ...Option) (*Store, error) {
	if index == nil || embedder == nil {
		return nil, fmt.Errorf("%w: index and embedder are required", models.ErrInvalidArgument)
	}
	if embedder.Dimensions() != index.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces %d dimensions, index expects %d",
			models.ErrDimensionMismatch, embedder.Dimensions(), index.Dimensions())
	}
	if records == nil {
		records = storage.NewMemoryStorage()
	}
	s := &Store{
		index:       index,
		embedder:    embedding.Checked(embedder),
		records:     records,
		extractor:   extract.NewExtractor(),
		locks:       newKeyedMutex(),
		threshold:   DefaultChunkThreshold,
		concurrency: DefaultConcurrency,
		batchSize:   DefaultBatchSize,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.chunker == nil {
		c, err := indexer.NewChunker()
		if err != nil {
			return nil, err
		}
		s.chunker = c
	}
	if s.threshold < 0 || s.concurrency <= 0 || s.batchSize <= 0 {
		return nil, fmt.Errorf("%w: threshold, concurrency and batch size must be positive", models.ErrInvalidArgument)
	}
	return s, nil
}

// Stats summarises the store's contents.
type Stats struct {
	Documents  int64  `json:"documents"`
	Entries    int    `json:"entries"`
	IndexType  string `json:"index_type"`
	Dimensions int    `json:"dimensions"`
	Metric     string `json:"metric"`
}

// Stats returns document and entry counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.records.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	return &Stats{
		Documents:  n,
		Entries:    s.index.Size(),
		IndexType:  s.index.Type(),
		Dimensions: s.index.Dimensions(),
		Metric:     vector.Metric,
	}, nil
}

// Close closes the index, the embedder and the record storage.
func (s *Store) Close() error {
	return errors.Join(s.index.Close(), s.embedder.Close(), s.records.Close())
}
