package models

// Citation links part of an answer back to its source document and page.
// One citation per distinct (document, page) pair.
type Citation struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	ChunkID    string `json:"chunk_id"`
	Excerpt    string `json:"excerpt"`
}

// Answer is the final response of the query pipeline.
type Answer struct {
	Answer            string     `json:"answer"`
	Citations         []Citation `json:"citations"`
	Confidence        float64    `json:"confidence"`
	Grounded          bool       `json:"grounded"`
	UngroundedClaims  []string   `json:"ungrounded_claims,omitempty"`
	Intent            string     `json:"intent,omitempty"`
	InsufficientInfo  bool       `json:"insufficient_info,omitempty"`
	LatencyMs         int64      `json:"latency_ms"`
	RetrievalMs       int64      `json:"retrieval_ms,omitempty"`
	GenerationMs      int64      `json:"generation_ms,omitempty"`
	ContextChunkCount int        `json:"context_chunk_count,omitempty"`
}
