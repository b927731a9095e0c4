package vector

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/vec/search"

	"github.com/hyperjump/kioku/internal/models"
)

// Metric is the distance used by every index: cosine distance, 1 - cos(a, b), in [0, 2].
const Metric = "cosine"

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

// CosineDistance returns 1 - cos(a, b) clamped to [0, 2]. A zero vector is at distance 1
// from everything.
func CosineDistance(a, b []float32) float64 {
	d := float64(search.Float32s(a).CosineDistance(b))
	switch {
	case d < 0:
		return 0
	case d > 2:
		return 2
	}
	return d
}

// candidate is an entry scored against a query. seq is the entry's first-insertion order.
type candidate struct {
	entry    *models.IndexEntry
	distance float64
	seq      int64
}

// topK orders candidates by distance, then insertion order, and keeps the first k.
func topK(cands []candidate, k int) []*Match {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].distance != cands[j].distance {
			return cands[i].distance < cands[j].distance
		}
		return cands[i].seq < cands[j].seq
	})
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]*Match, k)
	for i := 0; i < k; i++ {
		d := cands[i].distance
		out[i] = &Match{
			ID:       cands[i].entry.ID,
			Text:     cands[i].entry.Text,
			Metadata: cands[i].entry.Metadata.Clone(),
			Distance: &d,
		}
	}
	return out
}

func validateEntry(e *models.IndexEntry, dimensions int) error {
	if e == nil {
		return fmt.Errorf("%w: nil entry", models.ErrInvalidArgument)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: entry id is required", models.ErrInvalidArgument)
	}
	if len(e.Vector) != dimensions {
		return fmt.Errorf("%w: entry %s has %d dimensions, index expects %d",
			models.ErrDimensionMismatch, e.ID, len(e.Vector), dimensions)
	}
	if err := checkFinite(e.Vector); err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	if err := e.Metadata.Validate(); err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return nil
}

func validateQuery(vector []float32, k, dimensions int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}
	if len(vector) != dimensions {
		return fmt.Errorf("%w: query has %d dimensions, index expects %d",
			models.ErrDimensionMismatch, len(vector), dimensions)
	}
	if err := checkFinite(vector); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

// checkFinite rejects vectors with NaN or infinite components, which have no defined distance.
func checkFinite(v []float32) error {
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: component %d is not finite", models.ErrInvalidArgument, i)
		}
	}
	return nil
}

func cloneEntry(e *models.IndexEntry) *models.IndexEntry {
	return &models.IndexEntry{
		ID:       e.ID,
		Vector:   append([]float32(nil), e.Vector...),
		Metadata: e.Metadata.Clone(),
		Text:     e.Text,
	}
}
