package config

// Default locations.
const (
	DefaultConfigPath   = "/usr/local/etc/kioku/config.yaml"
	DefaultDatabasePath = "/usr/local/var/kioku/data/kioku.db"
	DefaultModelPath    = "/usr/local/var/kioku/data/models/all-MiniLM-L6-v2.onnx"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = DefaultModelPath
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == "gemini" {
			cfg.Embedding.Dimensions = 768
		} else {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "sqlite"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Chunking.MinChunkLength == 0 {
		cfg.Chunking.MinChunkLength = 100
	}
	if cfg.Chunking.Threshold == 0 {
		cfg.Chunking.Threshold = 1000
	}
	if cfg.Search.DefaultResults == 0 {
		cfg.Search.DefaultResults = 5
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 100
	}
}
