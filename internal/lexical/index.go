// Package lexical provides BM25-style keyword retrieval over the chunk corpus.
package lexical

import (
	"context"

	"github.com/andina-labs/yachay/internal/models"
)

// Index defines lexical search operations over chunks. Tokenization is shared
// between indexing and querying (lowercasing, accent folding, Spanish stop
// words) so query terms match accented corpus text.
type Index interface {
	Insert(ctx context.Context, chunkID, text string, meta map[string]string) error
	Delete(ctx context.Context, chunkIDs []string) error
	Search(ctx context.Context, query string, k int, filter models.MetadataFilter) ([]*Result, error)
	Size() (uint64, error)
	Close() error
}

// Result is a single lexical search hit. Scores are BM25-style: query-term
// overlap weighted by rarity and length-normalized.
type Result struct {
	ChunkID string
	Score   float64
}
