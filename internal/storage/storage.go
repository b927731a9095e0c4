// Package storage persists document ingestion records.
package storage

import (
	"context"

	"github.com/hyperjump/kioku/internal/models"
)

// Storage keeps one record per ingested document, keyed by document id.
type Storage interface {
	// PutDocument creates or replaces the record for rec.Metadata.ID.
	PutDocument(ctx context.Context, rec *models.DocumentRecord) error
	// GetDocument returns models.ErrNotFound when no record exists.
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	CountDocuments(ctx context.Context) (int64, error)
	Close() error
}
