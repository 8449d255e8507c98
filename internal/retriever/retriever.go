// Package retriever merges vector and lexical search into one candidate set.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/andina-labs/yachay/internal/embedding"
	"github.com/andina-labs/yachay/internal/lexical"
	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/internal/vector"
)

// HybridRetriever queries the vector and lexical indexes concurrently and
// blends their rankings. Sub-scores are min-max normalized within each
// source's result set, then combined as a weighted sum; chunks found by both
// sources add their contributions, so corroborated relevance is boosted.
type HybridRetriever struct {
	embedder      embedding.Embedder
	vectorIndex   vector.Index
	lexicalIndex  lexical.Index
	vectorWeight  float64
	lexicalWeight float64
	logger        *zap.Logger
}

// New creates a hybrid retriever with the given dependencies and blend weights.
func New(
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	lexicalIndex lexical.Index,
	vectorWeight, lexicalWeight float64,
	logger *zap.Logger,
) *HybridRetriever {
	return &HybridRetriever{
		embedder:      embedder,
		vectorIndex:   vectorIndex,
		lexicalIndex:  lexicalIndex,
		vectorWeight:  vectorWeight,
		lexicalWeight: lexicalWeight,
		logger:        logger,
	}
}

// Retrieve returns blended candidates, unique by chunk id, ordered descending
// by combined score. kVector and kLexical are the per-source candidate counts;
// callers request several times the final context size so the reranker has
// material to work with. An empty result from one source is not an error; the
// blend degrades to the other source. Only when both sources fail does
// Retrieve return an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, kVector, kLexical int, filter models.MetadataFilter) ([]*models.RetrievalCandidate, error) {
	var (
		vectorResults  []*vector.Result
		lexicalResults []*lexical.Result
		vectorErr      error
		lexicalErr     error
		wg             sync.WaitGroup
	)

	if r.vectorWeight > 0 && kVector > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryVec, err := r.embedder.Embed(ctx, query)
			if err != nil {
				vectorErr = fmt.Errorf("query embedding failed: %w", err)
				return
			}
			results, err := r.vectorIndex.Search(ctx, queryVec, kVector, filter)
			if err != nil {
				vectorErr = fmt.Errorf("vector search failed: %w", err)
				return
			}
			vectorResults = results
		}()
	}

	if r.lexicalWeight > 0 && kLexical > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := r.lexicalIndex.Search(ctx, query, kLexical, filter)
			if err != nil {
				lexicalErr = fmt.Errorf("lexical search failed: %w", err)
				return
			}
			lexicalResults = results
		}()
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if vectorErr != nil && lexicalErr != nil {
		return nil, fmt.Errorf("both retrieval sources failed: %v; %w", vectorErr, lexicalErr)
	}
	if vectorErr != nil && r.logger != nil {
		r.logger.Warn("vector retrieval degraded to lexical-only", zap.Error(vectorErr))
	}
	if lexicalErr != nil && r.logger != nil {
		r.logger.Warn("lexical retrieval degraded to vector-only", zap.Error(lexicalErr))
	}

	vectorScores := normalizeVector(vectorResults)
	lexicalScores := normalizeLexical(lexicalResults)

	byID := make(map[string]*models.RetrievalCandidate)
	var ordered []*models.RetrievalCandidate
	for _, vr := range vectorResults {
		c := &models.RetrievalCandidate{
			ChunkID:     vr.ChunkID,
			VectorScore: vectorScores[vr.ChunkID],
			Score:       r.vectorWeight * vectorScores[vr.ChunkID],
			Source:      models.SourceVector,
		}
		byID[vr.ChunkID] = c
		ordered = append(ordered, c)
	}
	for _, lr := range lexicalResults {
		if c, ok := byID[lr.ChunkID]; ok {
			c.LexicalScore = lexicalScores[lr.ChunkID]
			c.Score += r.lexicalWeight * lexicalScores[lr.ChunkID]
			c.Source = models.SourceBoth
			continue
		}
		c := &models.RetrievalCandidate{
			ChunkID:      lr.ChunkID,
			LexicalScore: lexicalScores[lr.ChunkID],
			Score:        r.lexicalWeight * lexicalScores[lr.ChunkID],
			Source:       models.SourceLexical,
		}
		byID[lr.ChunkID] = c
		ordered = append(ordered, c)
	}

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })
	return ordered, nil
}

// normalizeVector min-max normalizes vector scores to [0,1] within the result
// set. A degenerate set (all scores equal) normalizes to 1.0.
func normalizeVector(results []*vector.Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	if len(results) == 0 {
		return out
	}
	minS, maxS := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < minS {
			minS = r.Score
		}
		if r.Score > maxS {
			maxS = r.Score
		}
	}
	for _, r := range results {
		if maxS > minS {
			out[r.ChunkID] = (r.Score - minS) / (maxS - minS)
		} else {
			out[r.ChunkID] = 1.0
		}
	}
	return out
}

// normalizeLexical min-max normalizes lexical scores to [0,1] within the result set.
func normalizeLexical(results []*lexical.Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	if len(results) == 0 {
		return out
	}
	minS, maxS := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < minS {
			minS = r.Score
		}
		if r.Score > maxS {
			maxS = r.Score
		}
	}
	for _, r := range results {
		if maxS > minS {
			out[r.ChunkID] = (r.Score - minS) / (maxS - minS)
		} else {
			out[r.ChunkID] = 1.0
		}
	}
	return out
}
