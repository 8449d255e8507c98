// Package chunker splits document text into overlapping chunks with
// separator-priority boundaries and rune-accurate offsets.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/andina-labs/yachay/internal/models"
)

// DefaultSeparators is the boundary priority order: paragraph break, line
// break, sentence terminator, whitespace, hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text into overlapping chunks of at most chunkSize runes.
// The trailing overlap runes of chunk i are the leading runes of chunk i+1.
type Chunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

// New creates a chunker. overlap must be smaller than chunkSize; both are
// rune counts. A nil separators slice selects DefaultSeparators.
func New(chunkSize, overlap int, separators []string) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, models.NewConfigurationError("chunk_size", "must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, models.NewConfigurationError("chunk_overlap",
			"must be in [0, chunk_size), got %d with chunk_size %d", overlap, chunkSize)
	}
	if separators == nil {
		separators = DefaultSeparators
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap, separators: separators}, nil
}

// Chunk splits the document text into chunks. Every chunk inherits the full
// document metadata and carries the page number of its start offset. Chunk
// IDs are deterministic so re-ingesting an unchanged document reproduces the
// identical chunk set. Empty text yields an empty slice.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	runes := []rune(doc.Text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []*models.Chunk
	start := 0
	for index := 0; ; index++ {
		if n-start <= c.chunkSize {
			chunks = append(chunks, c.newChunk(doc, runes, start, n, index))
			break
		}
		cut := c.findCut(runes, start)
		chunks = append(chunks, c.newChunk(doc, runes, start, cut, index))
		start = cut - c.overlap
	}
	for i := 0; i < len(chunks)-1; i++ {
		chunks[i].BoundaryEnd = true
	}
	return chunks
}

// findCut returns the end offset of the chunk starting at start, trying
// separators in priority order. A cut is valid only if it advances past the
// overlap so the next chunk makes progress. Falls back to a hard cut at
// start+chunkSize when no separator fits.
func (c *Chunker) findCut(runes []rune, start int) int {
	limit := start + c.chunkSize
	window := string(runes[start:limit])
	for _, sep := range c.separators {
		if sep == "" {
			break
		}
		byteIdx := strings.LastIndex(window, sep)
		if byteIdx < 0 {
			continue
		}
		cut := start + utf8.RuneCountInString(window[:byteIdx]) + utf8.RuneCountInString(sep)
		if cut-start > c.overlap {
			return cut
		}
	}
	return limit
}

func (c *Chunker) newChunk(doc *models.Document, runes []rune, start, end, index int) *models.Chunk {
	meta := make(map[string]string, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return &models.Chunk{
		ID:            fmt.Sprintf("%s_%04d", doc.ID, index),
		DocumentID:    doc.ID,
		Index:         index,
		Text:          string(runes[start:end]),
		Start:         start,
		End:           end,
		Page:          doc.PageAt(start),
		Metadata:      meta,
		BoundaryStart: index > 0,
	}
}

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
