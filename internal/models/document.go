// Package models defines core data structures for documents, chunks, queries, and answers.
package models

import (
	"strings"
	"time"
)

// Page is one page of extracted text with its page number.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is an immutable ingested source unit. Re-ingestion supersedes the
// prior version (marked inactive) rather than editing it in place.
type Document struct {
	ID        string            `json:"id" db:"id"`
	Text      string            `json:"text" db:"text"`
	Pages     []Page            `json:"pages,omitempty" db:"pages"`
	Metadata  map[string]string `json:"metadata,omitempty" db:"metadata"`
	Version   int64             `json:"version" db:"version"`
	Active    bool              `json:"active" db:"active"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// JoinPages builds the document text from its pages when Text is empty.
// Pages are joined with a single newline.
func (d *Document) JoinPages() {
	if d.Text != "" || len(d.Pages) == 0 {
		return
	}
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text
	}
	d.Text = strings.Join(parts, "\n")
}

// PageAt returns the page number containing the given rune offset into the
// joined document text. Returns 1 when the document has no page metadata.
func (d *Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return 1
	}
	pos := 0
	for _, p := range d.Pages {
		pos += len([]rune(p.Text))
		if offset < pos {
			return p.Number
		}
		pos++ // joining newline
	}
	return d.Pages[len(d.Pages)-1].Number
}

// Chunk is a contiguous text span derived from exactly one document.
// Offsets are rune indexes into the parent text; End-Start equals the rune
// length of Text. Adjacent chunks may overlap by a configured amount.
type Chunk struct {
	ID              string            `json:"id" db:"id"`
	DocumentID      string            `json:"document_id" db:"document_id"`
	DocumentVersion int64             `json:"document_version" db:"document_version"`
	Index           int               `json:"index" db:"chunk_index"`
	Text            string            `json:"text" db:"text"`
	Start           int               `json:"start" db:"start_offset"`
	End             int               `json:"end" db:"end_offset"`
	Page            int               `json:"page" db:"page"`
	Metadata        map[string]string `json:"metadata,omitempty" db:"metadata"`
	BoundaryStart   bool              `json:"is_boundary_start" db:"boundary_start"`
	BoundaryEnd     bool              `json:"is_boundary_end" db:"boundary_end"`
}
