package rerank

import (
	"context"

	"github.com/andina-labs/yachay/internal/embedding"
)

// EmbeddingScorer scores (query, text) pairs by embedding cosine similarity.
// A bi-encoder stand-in for deployments without a dedicated cross-encoder.
type EmbeddingScorer struct {
	embedder embedding.Embedder
}

// NewEmbeddingScorer creates a scorer backed by the given embedder.
func NewEmbeddingScorer(embedder embedding.Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder}
}

// Score returns the cosine similarity of the query and text embeddings.
func (s *EmbeddingScorer) Score(ctx context.Context, query, text string) (float64, error) {
	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return 0, err
	}
	t, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return 0, err
	}
	return cosine(q, t), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}
