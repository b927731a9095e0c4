package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

// Search embeds query once and returns up to k nearest entries, closest first.
// k must be positive.
func (s *Store) Search(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	req := models.SearchRequest{Query: query, K: k}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.index.Query(ctx, vec, req.K)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	results := make([]*models.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = &models.SearchResult{
			ID:       m.ID,
			Text:     m.Text,
			Metadata: m.Metadata,
			Distance: m.Distance,
			Rank:     i + 1,
		}
	}
	s.logger.Debug("search completed",
		zap.String("query", req.Query),
		zap.Int("k", req.K),
		zap.Int("results", len(results)))
	return results, nil
}

// Get looks up a document or a chunk by id. A chunked document is answered from its
// record, with empty text and metadata listing the chunk ids, even when an older
// unchunked version of it is still in the index. ok is false when nothing matches.
func (s *Store) Get(ctx context.Context, id string) (*models.Record, bool, error) {
	rec, ok, err := s.Document(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if ok && rec.Chunked {
		return &models.Record{ID: id, Metadata: rec.Metadata}, true, nil
	}
	entry, ok, err := s.index.Get(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	return models.RecordFromEntry(entry), true, nil
}

// Document returns the ingestion record for a document id.
func (s *Store) Document(ctx context.Context, id string) (*models.DocumentRecord, bool, error) {
	rec, err := s.records.GetDocument(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
