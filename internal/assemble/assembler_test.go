package assemble

import (
	"strings"
	"testing"

	"github.com/andina-labs/yachay/internal/models"
)

func chunkOfSize(id string, n int) *models.ScoredChunk {
	return &models.ScoredChunk{
		Chunk: &models.Chunk{ID: id, Text: strings.Repeat("x", n), Start: 0, End: n},
		Score: 1,
	}
}

func TestAssembleTruncatesToBudget(t *testing.T) {
	a := New(100, 20)
	out, used := a.Assemble([]*models.ScoredChunk{
		chunkOfSize("c1", 60),
		chunkOfSize("c2", 60),
		chunkOfSize("c3", 60),
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(out))
	}
	if used != 100 {
		t.Errorf("cumulative size should be 100, got %d", used)
	}
	if out[0].Truncated {
		t.Error("first chunk should be included whole")
	}
	if !out[1].Truncated || len([]rune(out[1].Chunk.Text)) != 40 {
		t.Errorf("second chunk should be truncated to 40, got %d truncated=%v",
			len([]rune(out[1].Chunk.Text)), out[1].Truncated)
	}
}

func TestAssembleSkipsTinyRemainder(t *testing.T) {
	a := New(100, 50)
	out, used := a.Assemble([]*models.ScoredChunk{
		chunkOfSize("c1", 60),
		chunkOfSize("c2", 60),
	})
	// Remaining 40 < minFragment 50: c2 is skipped entirely.
	if len(out) != 1 || used != 60 {
		t.Errorf("expected only c1 (60 runes), got %d chunks, %d runes", len(out), used)
	}
}

func TestAssembleBudgetNeverExceeded(t *testing.T) {
	a := New(75, 10)
	out, used := a.Assemble([]*models.ScoredChunk{
		chunkOfSize("c1", 30),
		chunkOfSize("c2", 30),
		chunkOfSize("c3", 30),
	})
	if used > 75 {
		t.Errorf("budget exceeded: %d > 75", used)
	}
	total := 0
	for _, sc := range out {
		total += len([]rune(sc.Chunk.Text))
	}
	if total != used {
		t.Errorf("reported size %d does not match actual %d", used, total)
	}
}

func TestAssembleHardFloor(t *testing.T) {
	a := New(50, 100)
	out, used := a.Assemble([]*models.ScoredChunk{chunkOfSize("c1", 200)})
	if len(out) != 1 {
		t.Fatal("non-empty input must never produce zero context")
	}
	if used != 50 || !out[0].Truncated {
		t.Errorf("oversized single chunk should be truncated to budget, got %d truncated=%v", used, out[0].Truncated)
	}
}

func TestAssemblePreservesOrder(t *testing.T) {
	a := New(100, 5)
	out, _ := a.Assemble([]*models.ScoredChunk{
		chunkOfSize("c1", 30),
		chunkOfSize("c2", 90), // remaining 70: truncated to fit
		chunkOfSize("c3", 10),
	})
	// c2 fits by truncation (remaining 70 >= minFragment 5), exhausting the budget.
	if len(out) != 2 || out[0].Chunk.ID != "c1" || out[1].Chunk.ID != "c2" {
		ids := make([]string, len(out))
		for i, sc := range out {
			ids[i] = sc.Chunk.ID
		}
		t.Errorf("unexpected selection/order: %v", ids)
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := New(100, 10)
	out, used := a.Assemble(nil)
	if out != nil || used != 0 {
		t.Errorf("empty input should yield empty output, got %v (%d)", out, used)
	}
}

func TestAssembleDoesNotMutateInput(t *testing.T) {
	a := New(50, 10)
	in := []*models.ScoredChunk{chunkOfSize("c1", 80)}
	_, _ = a.Assemble(in)
	if len([]rune(in[0].Chunk.Text)) != 80 || in[0].Truncated {
		t.Error("assembler must not mutate the input chunks")
	}
}
