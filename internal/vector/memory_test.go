package vector

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/andina-labs/yachay/internal/models"
)

func unit(vals ...float32) []float32 {
	var sum float64
	for _, v := range vals {
		sum += float64(v * v)
	}
	norm := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = v * norm
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	vectors := map[string][]float32{
		"c1": unit(1, 0, 0),
		"c2": unit(0.2, 0.9, 0.1),
		"c3": unit(0.1, 0.2, 0.95),
	}
	for id, v := range vectors {
		if err := idx.Insert(ctx, id, v, nil); err != nil {
			t.Fatal(err)
		}
	}
	results, err := idx.Search(ctx, vectors["c2"], 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "c2" {
		t.Fatalf("self-similarity search should return c2 first, got %+v", results)
	}
	if math.Abs(results[0].Score-1.0) > 1e-5 {
		t.Errorf("self-similarity score should be ~1.0, got %f", results[0].Score)
	}
}

func TestDimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	err := idx.Insert(ctx, "c1", []float32{1, 0}, nil)
	var dimErr *models.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Want != 3 || dimErr.Got != 2 {
		t.Errorf("unexpected dims: %+v", dimErr)
	}
	if _, err := idx.Search(ctx, []float32{1}, 5, nil); err == nil {
		t.Error("query dimension mismatch should fail")
	}
}

func TestMetadataFilter(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Insert(ctx, "cusco", unit(1, 0), map[string]string{"region": "Cusco"})
	_ = idx.Insert(ctx, "lima", unit(1, 0.01), map[string]string{"region": "Lima"})

	results, err := idx.Search(ctx, unit(1, 0), 10, models.MetadataFilter{"region": "Cusco"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "cusco" {
		t.Errorf("filter should exclude non-matching entries, got %+v", results)
	}
}

func TestTieBreakInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	v := unit(1, 0)
	_ = idx.Insert(ctx, "first", v, nil)
	_ = idx.Insert(ctx, "second", v, nil)
	results, _ := idx.Search(ctx, v, 2, nil)
	if results[0].ChunkID != "first" || results[1].ChunkID != "second" {
		t.Errorf("equal scores should preserve insertion order, got %+v", results)
	}
}

func TestDeactivate(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Insert(ctx, "c1", unit(1, 0), nil)
	_ = idx.Insert(ctx, "c2", unit(0, 1), nil)
	if err := idx.Deactivate(ctx, []string{"c1"}); err != nil {
		t.Fatal(err)
	}
	results, _ := idx.Search(ctx, unit(1, 0), 10, nil)
	for _, r := range results {
		if r.ChunkID == "c1" {
			t.Error("deactivated entry should be excluded from search")
		}
	}
	if idx.Size() != 1 {
		t.Errorf("size should count only active entries, got %d", idx.Size())
	}
}

func TestReinsertSupersedes(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Insert(ctx, "c1", unit(1, 0), nil)
	_ = idx.Insert(ctx, "c1", unit(0, 1), nil)
	results, _ := idx.Search(ctx, unit(0, 1), 10, nil)
	if len(results) != 1 || math.Abs(results[0].Score-1.0) > 1e-5 {
		t.Errorf("re-insert should supersede the prior vector, got %+v", results)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector.bin")
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Insert(ctx, "c1", unit(1, 0), map[string]string{"region": "Cusco"})
	_ = idx.Insert(ctx, "c2", unit(0, 1), nil)
	_ = idx.Deactivate(ctx, []string{"c2"})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 1 {
		t.Errorf("loaded index should have 1 active entry, got %d", loaded.Size())
	}
	results, err := loaded.Search(ctx, unit(1, 0), 1, models.MetadataFilter{"region": "Cusco"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Errorf("loaded index should preserve metadata and active flags, got %+v", results)
	}

	wrongDim, _ := NewMemoryIndex(3)
	if err := wrongDim.Load(path); err == nil {
		t.Error("loading into a different dimension should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	if err := idx.Load(filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Errorf("missing file should not be an error, got %v", err)
	}
}
