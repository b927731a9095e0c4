package vector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/hyperjump/kioku/internal/models"
)

const (
	chromemCollection  = "kioku"
	chromemMetadataKey = "_metadata"
	chromemVectorKey   = "_vector"
)

// ChromemIndex keeps entries in an in-memory chromem-go collection.
// chromem normalizes stored embeddings, so the original vector is kept in the document metadata
// and returned by Get. Zero vectors cannot be normalized and are rejected.
type ChromemIndex struct {
	collection *chromem.Collection
	dimensions int

	mu    sync.RWMutex
	seqs  map[string]int64
	order []string
}

// NewChromemIndex creates an empty chromem-backed index.
func NewChromemIndex(dimensions int) (*ChromemIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrInvalidArgument)
	}
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(chromemCollection, map[string]string{"hnsw:space": Metric}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chromem collection: %w", err)
	}
	return &ChromemIndex{
		collection: collection,
		dimensions: dimensions,
		seqs:       make(map[string]int64),
	}, nil
}

// Type returns the index type identifier.
func (c *ChromemIndex) Type() string {
	return string(IndexTypeChromem)
}

// Dimensions returns the fixed vector length.
func (c *ChromemIndex) Dimensions() int {
	return c.dimensions
}

// Insert creates or overwrites one entry.
func (c *ChromemIndex) Insert(ctx context.Context, entry *models.IndexEntry) error {
	return c.InsertBatch(ctx, []*models.IndexEntry{entry})
}

// InsertBatch validates and encodes every entry before adding any to the collection.
func (c *ChromemIndex) InsertBatch(ctx context.Context, entries []*models.IndexEntry) error {
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		if err := validateEntry(e, c.dimensions); err != nil {
			return err
		}
		if Magnitude(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %s has a zero vector", models.ErrInvalidArgument, e.ID)
		}
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID: e.ID,
			Metadata: map[string]string{
				chromemMetadataKey: string(metadataJSON),
				chromemVectorKey:   base64.StdEncoding.EncodeToString(EncodeEmbedding(e.Vector)),
			},
			Embedding: append([]float32(nil), e.Vector...),
			Content:   e.Text,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		if err := c.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to add %s: %w", doc.ID, err)
		}
		if _, ok := c.seqs[doc.ID]; !ok {
			c.seqs[doc.ID] = int64(len(c.order))
			c.order = append(c.order, doc.ID)
		}
	}
	return nil
}

// Query asks chromem for every document's similarity and orders them by cosine distance.
func (c *ChromemIndex) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if err := validateQuery(vector, k, c.dimensions); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.collection.Count()
	if n == 0 {
		return []*Match{}, nil
	}

	cands := make([]candidate, 0, n)
	if Magnitude(vector) == 0 {
		for seq, id := range c.order {
			doc, err := c.collection.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			e, err := entryFromDocument(doc.ID, doc.Content, doc.Metadata)
			if err != nil {
				return nil, err
			}
			cands = append(cands, candidate{entry: e, distance: 1, seq: int64(seq)})
		}
		return topK(cands, k), nil
	}

	results, err := c.collection.QueryEmbedding(ctx, append([]float32(nil), vector...), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}
	for _, r := range results {
		e, err := entryFromDocument(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		d := 1 - float64(r.Similarity)
		if d < 0 {
			d = 0
		}
		cands = append(cands, candidate{entry: e, distance: d, seq: c.seqs[r.ID]})
	}
	return topK(cands, k), nil
}

func entryFromDocument(id, content string, metadata map[string]string) (*models.IndexEntry, error) {
	e := &models.IndexEntry{ID: id, Text: content}
	if err := json.Unmarshal([]byte(metadata[chromemMetadataKey]), &e.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", id, err)
	}
	raw, err := base64.StdEncoding.DecodeString(metadata[chromemVectorKey])
	if err != nil {
		return nil, fmt.Errorf("failed to decode vector for %s: %w", id, err)
	}
	if e.Vector, err = DecodeEmbedding(raw); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns the entry with the given id.
func (c *ChromemIndex) Get(ctx context.Context, id string) (*models.IndexEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.seqs[id]; !ok {
		return nil, false, nil
	}
	doc, err := c.collection.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	e, err := entryFromDocument(doc.ID, doc.Content, doc.Metadata)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Size returns the number of documents in the collection.
func (c *ChromemIndex) Size() int {
	return c.collection.Count()
}

// Close is a no-op; the chromem DB lives in process memory.
func (c *ChromemIndex) Close() error {
	return nil
}
