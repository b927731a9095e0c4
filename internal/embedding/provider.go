package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Embedding defaults.
const (
	DefaultDimensions       = 384
	DefaultMaxTokens        = 256
	DefaultGeminiModel      = "text-embedding-004"
	DefaultGeminiDimensions = 768
)

// Provider names accepted by New.
const (
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
)

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	ModelPath   string
	LibraryPath string
	OutputName  string
	Dimensions  int
	MaxTokens   int
}

func (o *ONNXOptions) applyDefaults() {
	if o.Dimensions <= 0 {
		o.Dimensions = DefaultDimensions
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.OutputName == "" {
		o.OutputName = "output"
	}
}

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string
	ModelPath  string
	Model      string
	APIKeyEnv  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	Logger     *zap.Logger
}

// New builds the configured provider, adds an LRU cache when CacheSize > 0,
// and wraps the result so failures surface as models.ErrEmbeddingUnavailable.
func New(ctx context.Context, opts Options) (Embedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var base Embedder
	switch opts.Provider {
	case ProviderMock, "":
		base = NewMockEmbedder(opts.Dimensions)
	case ProviderONNX:
		e, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:  opts.ModelPath,
			Dimensions: opts.Dimensions,
			MaxTokens:  opts.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		base = e
	case ProviderGemini:
		envName := opts.APIKeyEnv
		if envName == "" {
			envName = "GEMINI_API_KEY"
		}
		e, err := NewGeminiEmbedder(ctx, os.Getenv(envName), opts.Model, opts.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envName, err)
		}
		base = e
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, onnx, gemini)", opts.Provider)
	}

	logger.Debug("embedding provider ready",
		zap.String("provider", opts.Provider),
		zap.Int("dimensions", base.Dimensions()),
		zap.Int("cache_size", opts.CacheSize))

	if opts.CacheSize > 0 {
		base = NewCachedEmbedder(base, opts.CacheSize)
	}
	return Checked(base), nil
}
