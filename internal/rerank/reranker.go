// Package rerank re-scores retrieval candidates with a pairwise relevance model.
package rerank

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andina-labs/yachay/internal/models"
)

// Scorer is the pairwise relevance capability: a cross-attention-style model
// scoring one (query, candidate text) pair per call.
type Scorer interface {
	Score(ctx context.Context, query, text string) (float64, error)
}

// Reranker re-orders candidates by pairwise relevance. Reranking is a quality
// enhancement, not a correctness requirement: with no scorer, or when the
// scorer fails, the input order is returned truncated to top n.
type Reranker struct {
	scorer      Scorer
	concurrency int
	logger      *zap.Logger
}

// New creates a reranker. scorer may be nil (fail-soft passthrough).
// concurrency bounds in-flight scorer calls.
func New(scorer Scorer, concurrency int, logger *zap.Logger) *Reranker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Reranker{scorer: scorer, concurrency: concurrency, logger: logger}
}

// Rerank scores each candidate against the query and returns the top n by the
// new score, descending. The sort is stable: equal scores preserve the
// incoming hybrid-retrieval order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*models.ScoredChunk, topN int) []*models.ScoredChunk {
	if topN <= 0 || len(candidates) == 0 {
		return nil
	}
	if r.scorer == nil {
		return truncate(candidates, topN)
	}

	scores := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	var mu sync.Mutex
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			s, err := r.scorer.Score(gctx, query, c.Chunk.Text)
			if err != nil {
				return models.NewCapabilityError("reranker", err)
			}
			mu.Lock()
			scores[i] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if r.logger != nil {
			r.logger.Warn("reranker unavailable, preserving hybrid order", zap.Error(err))
		}
		return truncate(candidates, topN)
	}

	reranked := make([]*models.ScoredChunk, len(candidates))
	for i, c := range candidates {
		reranked[i] = &models.ScoredChunk{Chunk: c.Chunk, Score: scores[i]}
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	return truncate(reranked, topN)
}

func truncate(chunks []*models.ScoredChunk, n int) []*models.ScoredChunk {
	if n > len(chunks) {
		n = len(chunks)
	}
	out := make([]*models.ScoredChunk, n)
	copy(out, chunks[:n])
	return out
}
