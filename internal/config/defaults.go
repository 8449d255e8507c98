package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/yachay.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "./data/indices/vector.bin"
	}
	if cfg.Storage.LexicalIndexPath == "" {
		cfg.Storage.LexicalIndexPath = "./data/indices/lexical"
	}
	if cfg.Capabilities.Embedding.BaseURL == "" {
		cfg.Capabilities.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Capabilities.Embedding.Model == "" {
		cfg.Capabilities.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Capabilities.Embedding.Timeout == 0 {
		cfg.Capabilities.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Capabilities.Generation.BaseURL == "" {
		cfg.Capabilities.Generation.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Capabilities.Generation.Model == "" {
		cfg.Capabilities.Generation.Model = "llama3.1"
	}
	if cfg.Capabilities.Generation.Timeout == 0 {
		cfg.Capabilities.Generation.Timeout = 60 * time.Second
	}
	if cfg.Capabilities.EmbeddingCacheSize == 0 {
		cfg.Capabilities.EmbeddingCacheSize = 10000
	}
	if cfg.Capabilities.MaxConcurrentCalls == 0 {
		cfg.Capabilities.MaxConcurrentCalls = 8
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 512
	}
	if cfg.Pipeline.ChunkOverlap == 0 {
		cfg.Pipeline.ChunkOverlap = 64
	}
	if cfg.Pipeline.EmbeddingDimension == 0 {
		cfg.Pipeline.EmbeddingDimension = 384
	}
	if cfg.Pipeline.VectorWeight == 0 && cfg.Pipeline.LexicalWeight == 0 {
		cfg.Pipeline.VectorWeight = 0.6
		cfg.Pipeline.LexicalWeight = 0.4
	}
	if cfg.Pipeline.TopKCandidates == 0 {
		cfg.Pipeline.TopKCandidates = 20
	}
	if cfg.Pipeline.RerankTopN == 0 {
		cfg.Pipeline.RerankTopN = 5
	}
	if cfg.Pipeline.ContextBudget == 0 {
		cfg.Pipeline.ContextBudget = 4000
	}
	if cfg.Pipeline.MinFragmentSize == 0 {
		cfg.Pipeline.MinFragmentSize = 100
	}
	if cfg.Pipeline.GroundednessThreshold == 0 {
		// Tunable; calibrate against the labeled evaluation set.
		cfg.Pipeline.GroundednessThreshold = 0.55
	}
	w := &cfg.Pipeline.Confidence
	if w.Sources == 0 && w.Relevance == 0 && w.Hedging == 0 {
		w.Sources = 0.4
		w.Relevance = 0.4
		w.Hedging = 0.2
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".json"}
	}
}
