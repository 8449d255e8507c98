// Package generate provides the answer generation capability and the
// intent-tagged prompt templates that feed it.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cenkalti/backoff/v4"

	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/models"
)

const providerName = "generator"

// Generator produces a natural-language answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator calls an OpenAI-compatible chat completions endpoint.
// Transient failures get one bounded-backoff retry; anything else surfaces as
// a CapabilityError so the caller never returns a partial answer.
type HTTPGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPGenerator creates a generator from provider configuration.
func NewHTTPGenerator(cfg config.ProviderConfig) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: cfg.BaseURL,
		apiKey:  os.Getenv(cfg.APIKeyEnv),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate returns the model's answer for the prompt.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	op := func() error {
		a, err := g.generateOnce(ctx, prompt)
		if err != nil {
			return err
		}
		answer = a
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return answer, nil
}

func (g *HTTPGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(models.NewCapabilityError(providerName, err))
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", models.NewCapabilityError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", models.NewCapabilityError(providerName, fmt.Errorf("generation request failed: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return "", backoff.Permanent(models.NewCapabilityError(providerName,
			fmt.Errorf("generation request failed: %s", resp.Status)))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewCapabilityError(providerName, err)
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &out); err != nil || len(out.Choices) == 0 {
		return "", backoff.Permanent(models.NewCapabilityError(providerName, fmt.Errorf("no completion in response")))
	}
	return out.Choices[0].Message.Content, nil
}

// MockGenerator returns a fixed answer; for tests.
type MockGenerator struct {
	Response string
	Err      error
}

// Generate returns the configured response or error.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
