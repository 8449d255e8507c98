package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/pkg/utils"
)

const providerName = "embedder"

// HTTPEmbedder calls an OpenAI/Ollama-compatible embeddings endpoint.
// Vectors are normalized to unit length before being returned. Transient
// failures (network, 429, 5xx) get one bounded-backoff retry.
type HTTPEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
	limiter    *rate.Limiter
}

// NewHTTPEmbedder creates an embedder from provider configuration. dimensions
// is the index's fixed dimensionality; responses of any other length are a
// DimensionMismatchError. rateLimit caps calls per second (0 disables).
func NewHTTPEmbedder(cfg config.ProviderConfig, dimensions int, rateLimit float64) *HTTPEmbedder {
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}
	return &HTTPEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		model:      cfg.Model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Embed returns the embedding for text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	var vec []float32
	op := func() error {
		v, err := e.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds each text sequentially, preserving order.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op for HTTPEmbedder.
func (e *HTTPEmbedder) Close() error { return nil }

func (e *HTTPEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(map[string]string{"input": text, "model": e.model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(models.NewCapabilityError(providerName, err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, models.NewCapabilityError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, models.NewCapabilityError(providerName, fmt.Errorf("embeddings request failed: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return nil, backoff.Permanent(models.NewCapabilityError(providerName,
			fmt.Errorf("embeddings request failed: %s", resp.Status)))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewCapabilityError(providerName, err)
	}
	vec, err := decodeEmbedding(payload)
	if err != nil {
		return nil, backoff.Permanent(models.NewCapabilityError(providerName, err))
	}
	if len(vec) != e.dimensions {
		return nil, backoff.Permanent(&models.DimensionMismatchError{Want: e.dimensions, Got: len(vec)})
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// decodeEmbedding accepts both the OpenAI response shape and Ollama's native one.
func decodeEmbedding(payload []byte) ([]float32, error) {
	var openaiOut struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil &&
		len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
		return openaiOut.Data[0].Embedding, nil
	}
	var ollamaOut struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
		return ollamaOut.Embedding, nil
	}
	return nil, fmt.Errorf("no embedding in response")
}
