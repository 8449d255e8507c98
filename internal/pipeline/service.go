// Package pipeline orchestrates ingestion and the end-to-end query flow:
// retrieval, reranking, context assembly, generation, and post-processing.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andina-labs/yachay/internal/assemble"
	"github.com/andina-labs/yachay/internal/chunker"
	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/embedding"
	"github.com/andina-labs/yachay/internal/generate"
	"github.com/andina-labs/yachay/internal/lexical"
	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/internal/postprocess"
	"github.com/andina-labs/yachay/internal/rerank"
	"github.com/andina-labs/yachay/internal/retriever"
	"github.com/andina-labs/yachay/internal/storage"
	"github.com/andina-labs/yachay/internal/vector"
)

// insufficientInfoAnswer is returned when retrieval produces no candidates.
const insufficientInfoAnswer = "No dispongo de información suficiente para responder esta pregunta."

// Service wires the full pipeline. Indexes and the chunk store are updated
// together during ingestion; queries only read.
type Service struct {
	store        storage.Store
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	lexicalIndex lexical.Index
	retriever    *retriever.HybridRetriever
	reranker     *rerank.Reranker
	assembler    *assemble.Assembler
	generator    generate.Generator
	classifier   generate.IntentClassifier
	post         *postprocess.PostProcessor
	chunker      *chunker.Chunker
	cfg          *config.Config
	logger       *zap.Logger
}

// NewService creates the pipeline from its capability dependencies.
// scorer may be nil: reranking then degrades to the hybrid order.
func NewService(
	store storage.Store,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	lexicalIndex lexical.Index,
	generator generate.Generator,
	scorer rerank.Scorer,
	cfg *config.Config,
	logger *zap.Logger,
) (*Service, error) {
	p := cfg.Pipeline
	ch, err := chunker.New(p.ChunkSize, p.ChunkOverlap, nil)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:        store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		lexicalIndex: lexicalIndex,
		retriever:    retriever.New(embedder, vectorIndex, lexicalIndex, p.VectorWeight, p.LexicalWeight, logger),
		reranker:     rerank.New(scorer, cfg.Capabilities.MaxConcurrentCalls, logger),
		assembler:    assemble.New(p.ContextBudget, p.MinFragmentSize),
		generator:    generator,
		classifier:   generate.KeywordClassifier{},
		post:         postprocess.New(embedder, p.GroundednessThreshold, p.Confidence),
		chunker:      ch,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// IngestRequest is one document to ingest. Text may be empty when Pages is
// set; the page texts are then joined into the document text.
type IngestRequest struct {
	DocumentID string            `json:"document_id,omitempty"`
	Text       string            `json:"text,omitempty"`
	Pages      []models.Page     `json:"pages,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Version    int64  `json:"version"`
	ChunkCount int    `json:"chunk_count"`
}

// Ingest stores a document and indexes its chunks in the vector and lexical
// indexes. Re-ingesting an existing document ID supersedes the prior version:
// its chunks are deactivated in both indexes before the new ones are added,
// so queries never mix versions.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	doc := &models.Document{
		ID:       req.DocumentID,
		Text:     req.Text,
		Pages:    req.Pages,
		Metadata: req.Metadata,
		Version:  1,
	}
	doc.JoinPages()
	if doc.Text == "" {
		return nil, models.NewConfigurationError("text", "document has no text content")
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	if prior, err := s.store.GetDocument(ctx, doc.ID); err == nil {
		doc.Version = prior.Version + 1
	}
	stale, err := s.store.SupersedeDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to supersede document: %w", err)
	}
	if len(stale) > 0 {
		if err := s.vectorIndex.Deactivate(ctx, stale); err != nil {
			return nil, fmt.Errorf("failed to deactivate vectors: %w", err)
		}
		if err := s.lexicalIndex.Delete(ctx, stale); err != nil {
			return nil, fmt.Errorf("failed to delete lexical entries: %w", err)
		}
	}

	chunks := s.chunker.Chunk(doc)
	for _, c := range chunks {
		c.DocumentVersion = doc.Version
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	for i, c := range chunks {
		if err := s.vectorIndex.Insert(ctx, c.ID, embeddings[i], c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to index vector for %s: %w", c.ID, err)
		}
		if err := s.lexicalIndex.Insert(ctx, c.ID, c.Text, c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to index text for %s: %w", c.ID, err)
		}
	}

	if s.logger != nil {
		s.logger.Debug("document ingested",
			zap.String("document_id", doc.ID),
			zap.Int64("version", doc.Version),
			zap.Int("chunks", len(chunks)))
	}
	return &IngestResult{DocumentID: doc.ID, Version: doc.Version, ChunkCount: len(chunks)}, nil
}

// IngestBatch ingests documents concurrently. A failing document is logged
// and skipped; the batch fails only when every document fails.
func (s *Service) IngestBatch(ctx context.Context, reqs []*IngestRequest) ([]*IngestResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	results := make([]*IngestResult, len(reqs))
	errs := make([]error, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Capabilities.MaxConcurrentCalls)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Ingest(gctx, req)
			if err != nil {
				errs[i] = err
				if s.logger != nil {
					s.logger.Warn("document skipped",
						zap.String("document_id", req.DocumentID), zap.Error(err))
				}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var ok []*IngestResult
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("all %d documents failed, first error: %w", len(reqs), firstError(errs))
	}
	return ok, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Query answers a question from the indexed corpus. The stages run in order:
// hybrid retrieval, rerank, context assembly, generation, post-processing.
// Cancellation is honored at every stage boundary; a response that would
// arrive after the deadline is discarded rather than returned stale.
func (s *Service) Query(ctx context.Context, req *models.QueryRequest) (*models.Answer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}
	started := time.Now()

	k := s.cfg.Pipeline.TopKCandidates
	candidates, err := s.retriever.Retrieve(ctx, req.Question, k, k, req.Filter())
	if err != nil {
		return nil, err
	}
	retrievalMs := time.Since(started).Milliseconds()
	if len(candidates) == 0 {
		return s.insufficientInfo(req, started, retrievalMs), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := s.loadChunks(ctx, candidates)
	if len(scored) == 0 {
		return s.insufficientInfo(req, started, retrievalMs), nil
	}

	topN := req.TopK
	if topN > s.cfg.Pipeline.RerankTopN {
		topN = s.cfg.Pipeline.RerankTopN
	}
	ranked := s.reranker.Rerank(ctx, req.Question, scored, topN)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contextChunks, _ := s.assembler.Assemble(ranked)

	intent, err := s.classifier.Classify(ctx, req.Question)
	if err != nil {
		intent = generate.IntentFactual
	}
	prompt, err := generate.BuildPrompt(intent, req.Question, contextChunks)
	if err != nil {
		return nil, err
	}

	genStarted := time.Now()
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	generationMs := time.Since(genStarted).Milliseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	answer, err := s.post.Process(ctx, raw, contextChunks)
	if err != nil {
		return nil, err
	}
	answer.Intent = string(intent)
	answer.RetrievalMs = retrievalMs
	answer.GenerationMs = generationMs
	answer.LatencyMs = time.Since(started).Milliseconds()
	return answer, nil
}

// loadChunks resolves retrieval candidates to stored chunks, keeping the
// candidate order and score. Chunks missing from the store (raced by a
// concurrent supersede) are dropped.
func (s *Service) loadChunks(ctx context.Context, candidates []*models.RetrievalCandidate) []*models.ScoredChunk {
	scored := make([]*models.ScoredChunk, 0, len(candidates))
	for _, cand := range candidates {
		chunk, err := s.store.GetChunk(ctx, cand.ChunkID)
		if err != nil {
			if s.logger != nil {
				s.logger.Debug("candidate chunk not in store", zap.String("chunk_id", cand.ChunkID))
			}
			continue
		}
		scored = append(scored, &models.ScoredChunk{Chunk: chunk, Score: cand.Score})
	}
	return scored
}

func (s *Service) insufficientInfo(req *models.QueryRequest, started time.Time, retrievalMs int64) *models.Answer {
	if s.logger != nil {
		s.logger.Info("no candidates for question", zap.String("question", req.Question))
	}
	return &models.Answer{
		Answer:           insufficientInfoAnswer,
		Citations:        []models.Citation{},
		Confidence:       0,
		Grounded:         false,
		InsufficientInfo: true,
		RetrievalMs:      retrievalMs,
		LatencyMs:        time.Since(started).Milliseconds(),
	}
}

// Status reports corpus size for the status endpoint.
type Status struct {
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
	Vectors   int   `json:"vectors"`
}

// Status returns corpus counts.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	docs, err := s.store.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.store.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Documents: docs, Chunks: chunks, Vectors: s.vectorIndex.Size()}, nil
}

// GetDocument returns the active version of a stored document.
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// SaveIndexes persists the vector index snapshot to the configured path.
// The lexical index and the chunk store persist themselves on write.
func (s *Service) SaveIndexes() error {
	return s.vectorIndex.Save(s.cfg.Storage.VectorIndexPath)
}

// Close releases all pipeline resources.
func (s *Service) Close() error {
	var firstErr error
	for _, c := range []func() error{
		s.embedder.Close,
		s.vectorIndex.Close,
		s.lexicalIndex.Close,
		s.store.Close,
	} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
