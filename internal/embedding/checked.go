package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/kioku/internal/models"
)

// CheckedEmbedder reports every provider failure and every malformed vector
// as models.ErrEmbeddingUnavailable.
type CheckedEmbedder struct {
	inner Embedder
}

// Checked wraps e. Wrapping an already checked embedder returns it unchanged.
func Checked(e Embedder) *CheckedEmbedder {
	if c, ok := e.(*CheckedEmbedder); ok {
		return c
	}
	return &CheckedEmbedder{inner: e}
}

// Embed embeds text and validates the result.
func (c *CheckedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := c.validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// EmbedBatch embeds texts and validates that one well-formed vector came back per text.
func (c *CheckedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := c.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			models.ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	for _, v := range vecs {
		if err := c.validate(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (c *CheckedEmbedder) validate(v []float32) error {
	if len(v) != c.inner.Dimensions() {
		return fmt.Errorf("%w: provider returned %d dimensions, expected %d",
			models.ErrEmbeddingUnavailable, len(v), c.inner.Dimensions())
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: provider returned a non-finite value", models.ErrEmbeddingUnavailable)
		}
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, models.ErrEmbeddingUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CheckedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (c *CheckedEmbedder) Close() error {
	return c.inner.Close()
}
