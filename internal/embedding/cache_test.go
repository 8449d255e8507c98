package embedding

import (
	"context"
	"sync/atomic"
	"testing"
)

// countingEmbedder counts Embed calls to observe cache hits.
type countingEmbedder struct {
	*MockEmbedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func TestCachedEmbedderHit(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := c.Embed(ctx, "machu picchu")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Embed(ctx, "machu picchu")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("second Embed should hit the cache, inner calls = %d", inner.calls.Load())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached vector should equal computed vector")
		}
	}
}

func TestCachedEmbedderEviction(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	c := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, "b")
	_, _ = c.Embed(ctx, "c") // evicts "a"
	_, _ = c.Embed(ctx, "a")
	if inner.calls.Load() != 4 {
		t.Errorf("evicted entry should be recomputed, inner calls = %d", inner.calls.Load())
	}
}

func TestCachedEmbedderBatch(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "a")
	out, err := c.EmbedBatch(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] == nil || out[1] == nil {
		t.Fatal("batch should fill every slot")
	}
	if inner.calls.Load() != 2 {
		t.Errorf("batch should only compute the miss, inner calls = %d", inner.calls.Load())
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a, _ := e.Embed(context.Background(), "cusco")
	b, _ := e.Embed(context.Background(), "cusco")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("mock embedder should be deterministic")
		}
	}
	var sum float64
	for _, v := range a {
		sum += float64(v * v)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("mock embeddings should be unit length, norm^2 = %f", sum)
	}

	// Distinct texts must land on distinct vectors, and each dimension must
	// vary independently rather than following a shared curve.
	c, _ := e.Embed(context.Background(), "lima")
	same := 0
	for i := range a {
		if a[i] == c[i] {
			same++
		}
	}
	if same == len(a) {
		t.Error("distinct texts should not share an embedding")
	}
	signFlips := 0
	for i := 1; i < len(a); i++ {
		if (a[i] > 0) != (a[i-1] > 0) {
			signFlips++
		}
	}
	if signFlips == 0 {
		t.Error("dimensions should not all share a sign")
	}
}
