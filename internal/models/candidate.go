package models

// Candidate sources: which index produced a retrieval candidate.
const (
	SourceVector  = "vector"
	SourceLexical = "lexical"
	SourceBoth    = "both"
)

// RetrievalCandidate is a query-scoped candidate produced by hybrid retrieval.
// Never persisted.
type RetrievalCandidate struct {
	ChunkID      string  `json:"chunk_id"`
	Score        float64 `json:"score"`
	VectorScore  float64 `json:"vector_score"`
	LexicalScore float64 `json:"lexical_score"`
	Source       string  `json:"source"`
}

// ScoredChunk is a chunk with its final relevance score, used to build the
// generation prompt. Truncated marks chunks cut to fit the context budget.
type ScoredChunk struct {
	Chunk     *Chunk  `json:"chunk"`
	Score     float64 `json:"score"`
	Truncated bool    `json:"is_truncated,omitempty"`
}
