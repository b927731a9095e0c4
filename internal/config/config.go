// Package config provides configuration loading and structs for kioku.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kioku/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// StorageConfig holds the database path shared by the sqlite index and document records.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// VectorConfig selects the vector index backend. Only sqlite persists between CLI runs.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// ChunkingConfig holds the chunker window settings and the length above which documents are chunked.
type ChunkingConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	MinChunkLength int `yaml:"min_chunk_length"`
	Threshold      int `yaml:"threshold"`
}

// SearchConfig holds result count limits.
type SearchConfig struct {
	DefaultResults int `yaml:"default_results"`
	MaxResults     int `yaml:"max_results"`
}

// WatchConfig holds the settings of the watch command.
type WatchConfig struct {
	Extensions []string `yaml:"extensions"`
	Recursive  *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFirst loads the first of paths that exists. When none exists it returns the defaults,
// with an empty source path.
func LoadFirst(paths ...string) (*Config, string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to stat config: %w", err)
		}
		cfg, err := Load(p)
		if err != nil {
			return nil, "", err
		}
		return cfg, p, nil
	}
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg, "", nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the store cannot run with.
func (c *Config) Validate() error {
	ch := c.Chunking
	if ch.ChunkSize <= 0 || ch.ChunkOverlap < 0 || ch.ChunkOverlap >= ch.ChunkSize {
		return fmt.Errorf("%w: chunking requires chunk_size > chunk_overlap >= 0, got %d/%d",
			models.ErrInvalidArgument, ch.ChunkSize, ch.ChunkOverlap)
	}
	if ch.MinChunkLength < 0 || ch.Threshold < 0 {
		return fmt.Errorf("%w: min_chunk_length and threshold must not be negative", models.ErrInvalidArgument)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", models.ErrInvalidArgument)
	}
	if c.Search.DefaultResults > c.Search.MaxResults {
		return fmt.Errorf("%w: default_results %d exceeds max_results %d",
			models.ErrInvalidArgument, c.Search.DefaultResults, c.Search.MaxResults)
	}
	switch c.Vector.IndexType {
	case "memory", "sqlite", "chromem":
	default:
		return fmt.Errorf("%w: unknown index_type %q", models.ErrInvalidArgument, c.Vector.IndexType)
	}
	switch c.Embedding.Provider {
	case "mock", "onnx", "gemini":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidArgument, c.Embedding.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
