// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"

	"github.com/andina-labs/yachay/internal/models"
)

// Store defines document and chunk persistence operations. Documents are
// versioned: re-ingesting an ID supersedes the prior version instead of
// editing it in place.
type Store interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	SupersedeDocument(ctx context.Context, id string) ([]string, error)

	// Chunk operations
	SaveChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocument(ctx context.Context, docID string) ([]*models.Chunk, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
