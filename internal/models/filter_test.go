package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetadataFilterMatches(t *testing.T) {
	meta := map[string]string{"region": "Cusco", "category": "sitio"}
	if !(MetadataFilter{"region": "Cusco"}).Matches(meta) {
		t.Error("single-field match should succeed")
	}
	// Fields compose with AND.
	if (MetadataFilter{"region": "Cusco", "category": "hotel"}).Matches(meta) {
		t.Error("one failing field should fail the whole filter")
	}
	if !(MetadataFilter(nil)).Matches(meta) {
		t.Error("nil filter should match everything")
	}
	if (MetadataFilter{"region": "Lima"}).Matches(nil) {
		t.Error("missing key should not match")
	}
}

func TestQueryRequestValidate(t *testing.T) {
	q := &QueryRequest{}
	if err := q.Validate(); err == nil {
		t.Error("empty question should fail validation")
	}
	q = &QueryRequest{Question: "altura de Machu Picchu"}
	if err := q.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TopK != 5 {
		t.Errorf("TopK default should be 5, got %d", q.TopK)
	}
	q = &QueryRequest{Question: "q", TopK: 500}
	_ = q.Validate()
	if q.TopK != 50 {
		t.Errorf("TopK should cap at 50, got %d", q.TopK)
	}
}

func TestQueryRequestDeadlineFromWire(t *testing.T) {
	var q QueryRequest
	if err := json.Unmarshal([]byte(`{"question":"q","deadline_ms":2000}`), &q); err != nil {
		t.Fatal(err)
	}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Deadline != 2*time.Second {
		t.Errorf("deadline_ms 2000 should mean a 2s deadline, got %v", q.Deadline)
	}

	// A programmatic deadline wins over the wire field.
	q = QueryRequest{Question: "q", Deadline: time.Minute, DeadlineMs: 2000}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Deadline != time.Minute {
		t.Errorf("explicit deadline should be kept, got %v", q.Deadline)
	}

	q = QueryRequest{Question: "q", DeadlineMs: -1}
	if err := q.Validate(); err == nil {
		t.Error("negative deadline_ms should fail validation")
	}
}

func TestDocumentPageAt(t *testing.T) {
	doc := &Document{
		Pages: []Page{
			{Number: 1, Text: "abcde"}, // runes 0-4, newline at 5
			{Number: 2, Text: "fghij"}, // runes 6-10
		},
	}
	doc.JoinPages()
	if doc.Text != "abcde\nfghij" {
		t.Fatalf("unexpected joined text %q", doc.Text)
	}
	if p := doc.PageAt(0); p != 1 {
		t.Errorf("offset 0 should be page 1, got %d", p)
	}
	if p := doc.PageAt(7); p != 2 {
		t.Errorf("offset 7 should be page 2, got %d", p)
	}
	if p := doc.PageAt(100); p != 2 {
		t.Errorf("past-end offset should clamp to last page, got %d", p)
	}
}
