package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/embedding"
	"github.com/andina-labs/yachay/internal/generate"
	"github.com/andina-labs/yachay/internal/lexical"
	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/internal/pipeline"
	"github.com/andina-labs/yachay/internal/storage"
	"github.com/andina-labs/yachay/internal/vector"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Pipeline = config.PipelineConfig{
		ChunkSize:          120,
		ChunkOverlap:       20,
		EmbeddingDimension: 4,
		VectorWeight:       0.6,
		LexicalWeight:      0.4,
		TopKCandidates:     10,
		RerankTopN:         5,
		ContextBudget:      1000,
		MinFragmentSize:    20,
		Confidence:         config.ConfidenceWeights{Sources: 0.4, Relevance: 0.4, Hedging: 0.2},
	}
	cfg.Capabilities.MaxConcurrentCalls = 4
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.idx")

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	vecIdx, err := vector.NewMemoryIndex(4)
	if err != nil {
		t.Fatal(err)
	}
	lexIdx, err := lexical.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	gen := &generate.MockGenerator{Response: "Respuesta generada [1]."}
	svc, err := pipeline.NewService(store, embedding.NewMockEmbedder(4), vecIdx, lexIdx, gen, nil, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return NewServer(svc, &config.ServerConfig{Port: 8080}, zap.NewNop())
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestHandleIngestAndQuery(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	w := postJSON(t, router, "/api/v1/documents", &pipeline.IngestRequest{
		DocumentID: "guia-arequipa",
		Text:       "El monasterio de Santa Catalina es el principal atractivo de Arequipa.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status: got %d, body %s", w.Code, w.Body.String())
	}
	var ingested pipeline.IngestResult
	if err := json.NewDecoder(w.Body).Decode(&ingested); err != nil {
		t.Fatal(err)
	}
	if ingested.DocumentID != "guia-arequipa" || ingested.ChunkCount == 0 {
		t.Errorf("unexpected ingest result: %+v", ingested)
	}

	w = postJSON(t, router, "/api/v1/query", &models.QueryRequest{Question: "monasterio de Santa Catalina"})
	if w.Code != http.StatusOK {
		t.Fatalf("query status: got %d, body %s", w.Code, w.Body.String())
	}
	var answer models.Answer
	if err := json.NewDecoder(w.Body).Decode(&answer); err != nil {
		t.Fatal(err)
	}
	if answer.Answer == "" {
		t.Error("query response should contain an answer")
	}
}

func TestHandleQueryBadRequest(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: got %d", w.Code)
	}

	w = postJSON(t, router, "/api/v1/query", &models.QueryRequest{Question: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty question: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestHandleIngestBadRequest(t *testing.T) {
	srv := newTestServer(t)
	w := postJSON(t, srv.Router(), "/api/v1/documents", &pipeline.IngestRequest{DocumentID: "sin-texto"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty document: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestHandleGetDocument(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	postJSON(t, router, "/api/v1/documents", &pipeline.IngestRequest{
		DocumentID: "guia-ica",
		Text:       "Las líneas de Nazca se sobrevuelan desde el aeródromo de Ica.",
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents/guia-ica", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("get document: got %d", w.Code)
	}
	var doc models.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID != "guia-ica" {
		t.Errorf("unexpected document: %+v", doc)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/documents/desconocido", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document: got %d", w.Code)
	}
}

func TestHandleStatusAndHealth(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var status pipeline.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Documents != 0 || status.Chunks != 0 {
		t.Errorf("fresh corpus should be empty: %+v", status)
	}
}
