// Package postprocess attaches citations, confidence, and a groundedness
// signal to a generated answer. Pure post-processing: deterministic for the
// same inputs and never calls the generator.
package postprocess

import (
	"context"
	"strings"

	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/embedding"
	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/pkg/utils"
)

const excerptRunes = 160

// hedgeMarkers lower confidence when present in the answer. Spanish first;
// the corpus and generated answers are mostly Spanish.
var hedgeMarkers = []string{
	"posiblemente", "probablemente", "quizá", "quizás", "tal vez",
	"podría", "podrían", "no estoy seguro", "aparentemente", "al parecer",
	"possibly", "perhaps", "maybe", "might",
}

// PostProcessor derives citations, a clamped confidence score, and
// sentence-level groundedness flags from an answer and the chunks behind it.
type PostProcessor struct {
	embedder  embedding.Embedder
	threshold float64
	weights   config.ConfidenceWeights
}

// New creates a post-processor. threshold is the groundedness similarity
// cutoff; claims scoring below it are flagged unsupported.
func New(embedder embedding.Embedder, threshold float64, weights config.ConfidenceWeights) *PostProcessor {
	return &PostProcessor{embedder: embedder, threshold: threshold, weights: weights}
}

// Process builds the final answer from the raw generation output and the
// chunks used in the prompt. Grounding violations are reported, never errors:
// low groundedness is exposed as a signal, not a blocked response.
func (p *PostProcessor) Process(ctx context.Context, rawAnswer string, used []*models.ScoredChunk) (*models.Answer, error) {
	answer := &models.Answer{
		Answer:            rawAnswer,
		Citations:         buildCitations(used),
		Confidence:        p.confidence(rawAnswer, used),
		ContextChunkCount: len(used),
	}
	if len(used) == 0 {
		answer.Grounded = false
		return answer, nil
	}
	flagged, ok := p.ungroundedClaims(ctx, rawAnswer, used)
	answer.UngroundedClaims = flagged
	answer.Grounded = ok && len(flagged) == 0
	return answer, nil
}

// buildCitations returns one citation per distinct (document, page) pair, in
// first-use order, regardless of how many chunks from that page were used.
func buildCitations(used []*models.ScoredChunk) []models.Citation {
	type key struct {
		doc  string
		page int
	}
	seen := make(map[key]bool)
	citations := make([]models.Citation, 0, len(used))
	for _, sc := range used {
		k := key{doc: sc.Chunk.DocumentID, page: sc.Chunk.Page}
		if seen[k] {
			continue
		}
		seen[k] = true
		citations = append(citations, models.Citation{
			DocumentID: sc.Chunk.DocumentID,
			Page:       sc.Chunk.Page,
			ChunkID:    sc.Chunk.ID,
			Excerpt:    utils.TruncateRunes(sc.Chunk.Text, excerptRunes),
		})
	}
	return citations
}

// confidence blends source-count saturation (diminishing returns), the mean
// reranker relevance of used chunks, and a hedging penalty. Clamped to [0,1].
func (p *PostProcessor) confidence(rawAnswer string, used []*models.ScoredChunk) float64 {
	if len(used) == 0 {
		return 0
	}
	sourceSat := 1.0 - 1.0/(1.0+float64(len(used)))
	scores := make([]float64, len(used))
	for i, sc := range used {
		scores[i] = utils.Clamp01(sc.Score)
	}
	relevance := utils.Mean(scores)
	hedge := hedgePenalty(rawAnswer)
	w := p.weights
	return utils.Clamp01(w.Sources*sourceSat + w.Relevance*relevance - w.Hedging*hedge)
}

func hedgePenalty(answer string) float64 {
	lower := strings.ToLower(answer)
	count := 0
	for _, marker := range hedgeMarkers {
		count += strings.Count(lower, marker)
	}
	penalty := float64(count) / 3.0
	if penalty > 1 {
		penalty = 1
	}
	return penalty
}

// ungroundedClaims segments the answer into sentence-level claims and scores
// each against the concatenated context by embedding similarity. Returns the
// flagged claims and whether the check could run; if the embedder is
// unavailable the check is inconclusive (ok=false) rather than an error.
func (p *PostProcessor) ungroundedClaims(ctx context.Context, rawAnswer string, used []*models.ScoredChunk) ([]string, bool) {
	claims := utils.SplitSentences(rawAnswer)
	if len(claims) == 0 {
		return nil, false
	}
	var contextText strings.Builder
	for _, sc := range used {
		contextText.WriteString(sc.Chunk.Text)
		contextText.WriteString("\n")
	}
	ctxVec, err := p.embedder.Embed(ctx, contextText.String())
	if err != nil {
		return nil, false
	}
	var flagged []string
	for _, claim := range claims {
		claimVec, err := p.embedder.Embed(ctx, claim)
		if err != nil {
			return nil, false
		}
		if cosine(claimVec, ctxVec) < p.threshold {
			flagged = append(flagged, claim)
		}
	}
	return flagged, true
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
