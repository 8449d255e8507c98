package evaluator

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/internal/rerank"
	"github.com/andina-labs/yachay/pkg/utils"
)

// QueryRunner answers one question; satisfied by the pipeline service.
type QueryRunner interface {
	Query(ctx context.Context, req *models.QueryRequest) (*models.Answer, error)
}

// QueryResult holds the metrics of one evaluated query.
type QueryResult struct {
	Query        string   `json:"query"`
	Category     string   `json:"category,omitempty"`
	Answer       string   `json:"answer"`
	CitedSources []string `json:"cited_sources"`
	Precision    float64  `json:"precision"`
	Recall       float64  `json:"recall"`
	Faithfulness float64  `json:"faithfulness"`
	Relevancy    float64  `json:"relevancy,omitempty"`
	Confidence   float64  `json:"confidence"`
	Insufficient bool     `json:"insufficient,omitempty"`
	LatencyMs    int64    `json:"latency_ms"`
	Error        string   `json:"error,omitempty"`
}

// Aggregate summarizes a set of query results.
type Aggregate struct {
	Queries          int     `json:"queries"`
	MeanPrecision    float64 `json:"mean_precision"`
	MeanRecall       float64 `json:"mean_recall"`
	MeanFaithfulness float64 `json:"mean_faithfulness"`
	MeanRelevancy    float64 `json:"mean_relevancy,omitempty"`
	MeanConfidence   float64 `json:"mean_confidence"`
	MeanLatencyMs    float64 `json:"mean_latency_ms"`
	P50LatencyMs     float64 `json:"p50_latency_ms"`
	P95LatencyMs     float64 `json:"p95_latency_ms"`
}

// Report is the full evaluation output: per-query rows plus overall and
// per-category aggregates.
type Report struct {
	Name       string               `json:"name,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	Results    []QueryResult        `json:"results"`
	Overall    Aggregate            `json:"overall"`
	ByCategory map[string]Aggregate `json:"by_category,omitempty"`
}

// Evaluator runs a query set against a pipeline. It keeps no state between
// runs; every Run starts from the query set alone.
type Evaluator struct {
	runner QueryRunner
	scorer rerank.Scorer
	logger *zap.Logger
}

// New creates an evaluator. scorer is optional; without it the relevancy
// metric is omitted.
func New(runner QueryRunner, scorer rerank.Scorer, logger *zap.Logger) *Evaluator {
	return &Evaluator{runner: runner, scorer: scorer, logger: logger}
}

// Evaluate loads the query set at path and runs it.
func (e *Evaluator) Evaluate(ctx context.Context, path string) (*Report, error) {
	qs, err := LoadQuerySet(path)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, qs)
}

// Run evaluates every query in the set sequentially so latency numbers are
// not skewed by self-inflicted contention. A query that fails or comes back
// insufficient is scored zero, never an error: gaps in the corpus are a
// finding, not a failure of the evaluation.
func (e *Evaluator) Run(ctx context.Context, qs *QuerySet) (*Report, error) {
	report := &Report{
		Name:      qs.Name,
		StartedAt: time.Now(),
		Results:   make([]QueryResult, 0, len(qs.Items)),
	}
	for _, item := range qs.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Results = append(report.Results, e.evaluate(ctx, item))
	}
	report.Overall = aggregate(report.Results)
	report.ByCategory = aggregateByCategory(report.Results)
	return report, nil
}

func (e *Evaluator) evaluate(ctx context.Context, item QueryItem) QueryResult {
	result := QueryResult{Query: item.Query, Category: item.Category}

	started := time.Now()
	answer, err := e.runner.Query(ctx, &models.QueryRequest{Question: item.Query, Filters: item.Filters})
	result.LatencyMs = time.Since(started).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		if e.logger != nil {
			e.logger.Warn("query failed during evaluation", zap.String("query", item.Query), zap.Error(err))
		}
		return result
	}

	result.Answer = answer.Answer
	result.Confidence = answer.Confidence
	result.Insufficient = answer.InsufficientInfo
	result.CitedSources = citedDocuments(answer.Citations)
	result.Precision, result.Recall = precisionRecall(result.CitedSources, item.ExpectedSources)
	result.Faithfulness = faithfulness(answer)
	if e.scorer != nil && !answer.InsufficientInfo {
		if rel, err := e.scorer.Score(ctx, item.Query, answer.Answer); err == nil {
			result.Relevancy = utils.Clamp01(rel)
		}
	}
	return result
}

// citedDocuments returns the distinct cited document IDs in citation order.
func citedDocuments(citations []models.Citation) []string {
	seen := make(map[string]bool)
	var docs []string
	for _, c := range citations {
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			docs = append(docs, c.DocumentID)
		}
	}
	return docs
}

// precisionRecall compares cited documents against the labeled sources.
// With no expected sources recall is vacuously 1; with no citations
// precision is 0.
func precisionRecall(cited, expected []string) (float64, float64) {
	if len(expected) == 0 {
		if len(cited) == 0 {
			return 1, 1
		}
		return 0, 1
	}
	if len(cited) == 0 {
		return 0, 0
	}
	want := make(map[string]bool, len(expected))
	for _, id := range expected {
		want[id] = true
	}
	hits := 0
	for _, id := range cited {
		if want[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(cited)), float64(hits) / float64(len(expected))
}

// faithfulness is the fraction of answer claims the groundedness check did
// not flag. A grounded answer scores 1; an insufficient-info answer 0.
func faithfulness(answer *models.Answer) float64 {
	if answer.InsufficientInfo {
		return 0
	}
	if answer.Grounded {
		return 1
	}
	claims := len(utils.SplitSentences(answer.Answer))
	if claims == 0 {
		return 0
	}
	flagged := len(answer.UngroundedClaims)
	if flagged >= claims {
		return 0
	}
	return float64(claims-flagged) / float64(claims)
}

func aggregate(results []QueryResult) Aggregate {
	agg := Aggregate{Queries: len(results)}
	if len(results) == 0 {
		return agg
	}
	var precision, recall, faith, rel, conf, latency []float64
	for _, r := range results {
		precision = append(precision, r.Precision)
		recall = append(recall, r.Recall)
		faith = append(faith, r.Faithfulness)
		rel = append(rel, r.Relevancy)
		conf = append(conf, r.Confidence)
		latency = append(latency, float64(r.LatencyMs))
	}
	agg.MeanPrecision = utils.Mean(precision)
	agg.MeanRecall = utils.Mean(recall)
	agg.MeanFaithfulness = utils.Mean(faith)
	agg.MeanRelevancy = utils.Mean(rel)
	agg.MeanConfidence = utils.Mean(conf)
	agg.MeanLatencyMs = utils.Mean(latency)
	agg.P50LatencyMs = utils.Percentile(latency, 50)
	agg.P95LatencyMs = utils.Percentile(latency, 95)
	return agg
}

func aggregateByCategory(results []QueryResult) map[string]Aggregate {
	byCat := make(map[string][]QueryResult)
	for _, r := range results {
		if r.Category != "" {
			byCat[r.Category] = append(byCat[r.Category], r)
		}
	}
	if len(byCat) == 0 {
		return nil
	}
	out := make(map[string]Aggregate, len(byCat))
	for cat, rs := range byCat {
		out[cat] = aggregate(rs)
	}
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
