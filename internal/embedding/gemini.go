package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiEmbedder produces embeddings with the Gemini embedding API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	dimensions int
}

// NewGeminiEmbedder creates a client for the named embedding model.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if dimensions <= 0 {
		dimensions = DefaultGeminiDimensions
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEmbedder{
		client:     client,
		model:      client.EmbeddingModel(model),
		dimensions: dimensions,
	}, nil
}

// Embed returns the embedding of text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("gemini returned an empty embedding")
	}
	return toFloat32(resp.Embedding.Values), nil
}

// EmbedBatch embeds all texts in one BatchEmbedContents call.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	batch := g.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	resp, err := g.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed failed: %w", err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini returned an empty embedding for text %d", i)
		}
		out[i] = toFloat32(emb.Values)
	}
	return out, nil
}

func toFloat32[T float32 | float64](values []T) []float32 {
	result := make([]float32, len(values))
	for i, v := range values {
		result[i] = float32(v)
	}
	return result
}

// Dimensions returns the configured embedding dimension.
func (g *GeminiEmbedder) Dimensions() int {
	return g.dimensions
}

// Close closes the client.
func (g *GeminiEmbedder) Close() error {
	return g.client.Close()
}
