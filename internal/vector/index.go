// Package vector provides the chunk vector index and similarity search.
package vector

import (
	"context"

	"github.com/andina-labs/yachay/internal/models"
)

// Index defines vector storage and cosine similarity search over chunks.
// The index is append-only: superseded entries are deactivated, not removed.
type Index interface {
	Insert(ctx context.Context, chunkID string, vec []float32, meta map[string]string) error
	Search(ctx context.Context, query []float32, k int, filter models.MetadataFilter) ([]*Result, error)
	Deactivate(ctx context.Context, chunkIDs []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	ChunkID string
	Score   float64 // cosine similarity on normalized vectors, [-1, 1]
}
