package models

import "errors"

// Sentinel errors shared by the index, the embedders and the document store.
// Callers match them with errors.Is; producers wrap them with fmt.Errorf("...: %w").
var (
	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotFound indicates no entry exists for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a request rejected before any side effect.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or returned malformed output.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)
