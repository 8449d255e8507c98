package postprocess

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/models"
)

// stubEmbedder returns fixed unit vectors per text prefix so similarity is
// controlled by the test, not by a hash.
type stubEmbedder struct {
	vectors map[string][]float32
	fallbck []float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	for prefix, vec := range s.vectors {
		if strings.HasPrefix(text, prefix) {
			return vec, nil
		}
	}
	return s.fallbck, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 2 }
func (s *stubEmbedder) Close() error    { return nil }

func defaultWeights() config.ConfidenceWeights {
	return config.ConfidenceWeights{Sources: 0.4, Relevance: 0.4, Hedging: 0.2}
}

func scored(doc string, page int, id, text string, score float64) *models.ScoredChunk {
	return &models.ScoredChunk{
		Chunk: &models.Chunk{ID: id, DocumentID: doc, Page: page, Text: text},
		Score: score,
	}
}

func TestProcessCitationsDedupedByDocumentAndPage(t *testing.T) {
	emb := &stubEmbedder{fallbck: []float32{1, 0}}
	p := New(emb, 0.55, defaultWeights())
	used := []*models.ScoredChunk{
		scored("guia-cusco", 3, "guia-cusco_0001", "Machu Picchu está a 2430 metros.", 0.9),
		scored("guia-cusco", 3, "guia-cusco_0002", "La ciudadela fue construida en el siglo XV.", 0.8),
		scored("guia-lima", 1, "guia-lima_0000", "Lima es la capital del Perú.", 0.7),
	}
	answer, err := p.Process(context.Background(), "Machu Picchu está a 2430 metros.", used)
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("expected 2 citations after (document, page) dedup, got %d", len(answer.Citations))
	}
	if answer.Citations[0].DocumentID != "guia-cusco" || answer.Citations[0].Page != 3 {
		t.Errorf("first citation should be guia-cusco p.3, got %s p.%d",
			answer.Citations[0].DocumentID, answer.Citations[0].Page)
	}
	if answer.Citations[1].DocumentID != "guia-lima" {
		t.Errorf("second citation should be guia-lima, got %s", answer.Citations[1].DocumentID)
	}
	if answer.Citations[0].Excerpt == "" {
		t.Error("citations should carry an excerpt")
	}
}

func TestProcessHedgingLowersConfidence(t *testing.T) {
	emb := &stubEmbedder{fallbck: []float32{1, 0}}
	p := New(emb, 0.55, defaultWeights())
	used := []*models.ScoredChunk{
		scored("d", 1, "d_0000", "El boleto general cuesta 152 soles.", 0.9),
	}

	direct, err := p.Process(context.Background(), "El boleto cuesta 152 soles.", used)
	if err != nil {
		t.Fatal(err)
	}
	hedged, err := p.Process(context.Background(), "El boleto posiblemente cuesta 152 soles, tal vez menos.", used)
	if err != nil {
		t.Fatal(err)
	}
	if hedged.Confidence >= direct.Confidence {
		t.Errorf("hedged answer must score lower: hedged=%f direct=%f", hedged.Confidence, direct.Confidence)
	}
}

func TestProcessConfidenceBounds(t *testing.T) {
	emb := &stubEmbedder{fallbck: []float32{1, 0}}
	p := New(emb, 0.55, config.ConfidenceWeights{Sources: 1, Relevance: 1, Hedging: 1})
	cases := []struct {
		answer string
		used   []*models.ScoredChunk
	}{
		{"Respuesta directa.", []*models.ScoredChunk{
			scored("a", 1, "a_0000", "t", 5.0), // out-of-range score gets clamped
			scored("b", 1, "b_0000", "t", 1.0),
			scored("c", 1, "c_0000", "t", 1.0),
		}},
		{"Quizás, tal vez, posiblemente, probablemente no estoy seguro.", []*models.ScoredChunk{
			scored("a", 1, "a_0000", "t", 0.0),
		}},
		{"Sin contexto.", nil},
	}
	for _, tc := range cases {
		answer, err := p.Process(context.Background(), tc.answer, tc.used)
		if err != nil {
			t.Fatal(err)
		}
		if answer.Confidence < 0 || answer.Confidence > 1 {
			t.Errorf("confidence out of [0,1]: %f for %q", answer.Confidence, tc.answer)
		}
	}
}

func TestProcessEmptyContext(t *testing.T) {
	emb := &stubEmbedder{fallbck: []float32{1, 0}}
	p := New(emb, 0.55, defaultWeights())
	answer, err := p.Process(context.Background(), "No dispongo de información suficiente.", nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Confidence != 0 {
		t.Errorf("no context must mean zero confidence, got %f", answer.Confidence)
	}
	if answer.Grounded {
		t.Error("an answer with no context cannot be grounded")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("no context must mean no citations, got %d", len(answer.Citations))
	}
}

func TestProcessFlagsUngroundedClaims(t *testing.T) {
	// The supported claim and the context share a vector; the invented claim
	// is orthogonal to it.
	emb := &stubEmbedder{
		vectors: map[string][]float32{
			"El museo abre a las nueve": {1, 0},
			"La entrada es gratuita":    {0, 1},
		},
		fallbck: []float32{1, 0},
	}
	p := New(emb, 0.55, defaultWeights())
	used := []*models.ScoredChunk{
		scored("d", 1, "d_0000", "El museo abre a las nueve de la mañana.", 0.9),
	}
	answer, err := p.Process(context.Background(),
		"El museo abre a las nueve. La entrada es gratuita.", used)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Grounded {
		t.Error("answer with an unsupported claim must not be grounded")
	}
	if len(answer.UngroundedClaims) != 1 || !strings.Contains(answer.UngroundedClaims[0], "gratuita") {
		t.Errorf("expected the invented claim flagged, got %v", answer.UngroundedClaims)
	}
}

func TestProcessGroundedAnswer(t *testing.T) {
	emb := &stubEmbedder{fallbck: []float32{1, 0}}
	p := New(emb, 0.55, defaultWeights())
	used := []*models.ScoredChunk{
		scored("d", 1, "d_0000", "Machu Picchu está a 2430 metros.", 0.9),
	}
	answer, err := p.Process(context.Background(), "Machu Picchu está a 2430 metros [1].", used)
	if err != nil {
		t.Fatal(err)
	}
	if !answer.Grounded || len(answer.UngroundedClaims) != 0 {
		t.Errorf("fully supported answer should be grounded, flags: %v", answer.UngroundedClaims)
	}
}

func TestProcessEmbedderFailureIsInconclusive(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("provider down")}
	p := New(emb, 0.55, defaultWeights())
	used := []*models.ScoredChunk{
		scored("d", 1, "d_0000", "texto", 0.9),
	}
	answer, err := p.Process(context.Background(), "Una respuesta.", used)
	if err != nil {
		t.Fatal("an unavailable embedder must not fail post-processing")
	}
	if answer.Grounded {
		t.Error("groundedness cannot be asserted without the embedder")
	}
	if len(answer.UngroundedClaims) != 0 {
		t.Errorf("inconclusive check must not invent flags, got %v", answer.UngroundedClaims)
	}
}
