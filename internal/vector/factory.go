package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for small datasets.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeSQLite keeps entries in a SQLite table so they survive between CLI runs.
	IndexTypeSQLite IndexType = "sqlite"
	// IndexTypeChromem stores entries in an in-memory chromem-go collection.
	IndexTypeChromem IndexType = "chromem"
)

// Options configures NewVectorIndex.
type Options struct {
	Type         string
	Dimensions   int
	DatabasePath string // used by the sqlite index
}

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "sqlite", "chromem".
func NewVectorIndex(opts Options) (VectorIndex, error) {
	switch IndexType(opts.Type) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(opts.Dimensions)
	case IndexTypeSQLite:
		return NewSQLiteIndex(opts.DatabasePath, opts.Dimensions)
	case IndexTypeChromem:
		return NewChromemIndex(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, sqlite, chromem)", opts.Type)
	}
}
