package lexical

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/char/asciifolding"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/andina-labs/yachay/internal/models"
)

// analyzerName is the custom chunk-text analyzer: accent folding so "esta"
// matches "está", lowercasing, and Spanish stop word removal.
const analyzerName = "es_folding"

type lexDoc struct {
	Text string            `json:"text"`
	Meta map[string]string `json:"meta"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused so incremental ingestion does not re-index unchanged chunks. If the
// mapping changes in code, remove the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open lexical index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{asciifolding.Name},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, es.StopName},
	}); err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	chunkMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = analyzerName
	chunkMapping.AddFieldMappingsAt("text", textField)

	// Metadata values are matched exactly by filters, never analyzed.
	metaMapping := bleve.NewDocumentMapping()
	metaMapping.DefaultAnalyzer = keyword.Name
	chunkMapping.AddSubDocumentMapping("meta", metaMapping)

	im.DefaultMapping = chunkMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Insert indexes chunk text with its denormalized metadata.
func (b *BleveIndex) Insert(ctx context.Context, chunkID, text string, meta map[string]string) error {
	return b.index.Index(chunkID, &lexDoc{Text: text, Meta: meta})
}

// Delete removes chunks from the index (supersede on re-ingestion).
func (b *BleveIndex) Delete(ctx context.Context, chunkIDs []string) error {
	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// Search runs a match query over chunk text and returns up to k results
// ordered descending by score. Filter fields become exact term conjuncts so
// results never include entries failing the predicate.
func (b *BleveIndex) Search(ctx context.Context, query string, k int, filter models.MetadataFilter) ([]*Result, error) {
	if k <= 0 {
		return nil, nil
	}
	mq := bleve.NewMatchQuery(query)
	mq.SetField("text")

	var q blevequery.Query = mq
	if len(filter) > 0 {
		conjuncts := []blevequery.Query{mq}
		for field, value := range filter {
			tq := bleve.NewTermQuery(value)
			tq.SetField("meta." + field)
			conjuncts = append(conjuncts, tq)
		}
		q = bleve.NewConjunctionQuery(conjuncts...)
	}

	req := bleve.NewSearchRequestOptions(q, k, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{ChunkID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Size returns the number of indexed chunks.
func (b *BleveIndex) Size() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
