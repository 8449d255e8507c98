// Package embedding provides the text embedding capability: a provider
// interface, a remote HTTP provider, a deterministic mock, and an LRU cache.
package embedding

import "context"

// Embedder produces unit-length vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
