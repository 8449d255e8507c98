// Package config provides configuration loading and structs for the Yachay pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andina-labs/yachay/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Watch        WatchConfig        `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chunk store and index snapshots.
// The three are versioned together so a reindex swaps atomically.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	LexicalIndexPath string `yaml:"lexical_index_path"`
}

// ProviderConfig holds settings for one remote capability provider.
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CapabilitiesConfig holds the external capability providers. Embedding and
// generation are required for a live deployment; rerank is optional and the
// pipeline fails soft without it.
type CapabilitiesConfig struct {
	Embedding  ProviderConfig `yaml:"embedding"`
	Generation ProviderConfig `yaml:"generation"`
	Rerank     ProviderConfig `yaml:"rerank"`
	// EmbeddingCacheSize is the LRU capacity of the embedding cache.
	EmbeddingCacheSize int `yaml:"embedding_cache_size"`
	// MaxConcurrentCalls bounds in-flight calls per capability (worker pool).
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
	// RateLimit is the per-second cap on capability calls; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
}

// ConfidenceWeights blend the confidence signals of the post-processor.
type ConfidenceWeights struct {
	Sources   float64 `yaml:"sources"`
	Relevance float64 `yaml:"relevance"`
	Hedging   float64 `yaml:"hedging"`
}

// PipelineConfig holds chunking, retrieval, and post-processing settings.
type PipelineConfig struct {
	ChunkSize             int               `yaml:"chunk_size"`
	ChunkOverlap          int               `yaml:"chunk_overlap"`
	EmbeddingDimension    int               `yaml:"embedding_dimension"`
	VectorWeight          float64           `yaml:"vector_weight"`
	LexicalWeight         float64           `yaml:"lexical_weight"`
	TopKCandidates        int               `yaml:"top_k_candidates"`
	RerankTopN            int               `yaml:"rerank_top_n"`
	ContextBudget         int               `yaml:"context_budget"`
	MinFragmentSize       int               `yaml:"min_fragment_size"`
	GroundednessThreshold float64           `yaml:"groundedness_threshold"`
	Confidence            ConfidenceWeights `yaml:"confidence_weights"`
}

// WatchConfig holds the extracted-text drop directory settings.
type WatchConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and validates. Returns an error if the file cannot be read or
// parsed, or if validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.LexicalIndexPath = expandPath(cfg.Storage.LexicalIndexPath, configDir)
	if cfg.Watch.Directory != "" {
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that must never be silently corrected.
// Fails fast with a ConfigurationError.
func (c *Config) Validate() error {
	p := &c.Pipeline
	if p.ChunkSize <= 0 {
		return models.NewConfigurationError("chunk_size", "must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return models.NewConfigurationError("chunk_overlap",
			"must be in [0, chunk_size), got %d with chunk_size %d", p.ChunkOverlap, p.ChunkSize)
	}
	if p.EmbeddingDimension <= 0 {
		return models.NewConfigurationError("embedding_dimension", "must be positive, got %d", p.EmbeddingDimension)
	}
	if p.TopKCandidates <= 0 {
		return models.NewConfigurationError("top_k_candidates", "must be positive, got %d", p.TopKCandidates)
	}
	if p.RerankTopN <= 0 {
		return models.NewConfigurationError("rerank_top_n", "must be positive, got %d", p.RerankTopN)
	}
	if p.VectorWeight < 0 || p.LexicalWeight < 0 || p.VectorWeight+p.LexicalWeight == 0 {
		return models.NewConfigurationError("vector_weight",
			"weights must be non-negative and not both zero (vector=%f lexical=%f)", p.VectorWeight, p.LexicalWeight)
	}
	if p.ContextBudget <= 0 {
		return models.NewConfigurationError("context_budget", "must be positive, got %d", p.ContextBudget)
	}
	if p.MinFragmentSize < 0 || p.MinFragmentSize > p.ContextBudget {
		return models.NewConfigurationError("min_fragment_size",
			"must be in [0, context_budget], got %d", p.MinFragmentSize)
	}
	if p.GroundednessThreshold < 0 || p.GroundednessThreshold > 1 {
		return models.NewConfigurationError("groundedness_threshold", "must be in [0, 1], got %f", p.GroundednessThreshold)
	}
	w := p.Confidence
	if w.Sources < 0 || w.Relevance < 0 || w.Hedging < 0 {
		return models.NewConfigurationError("confidence_weights", "weights must be non-negative")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
