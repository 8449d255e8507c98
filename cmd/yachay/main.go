// Package main is the Yachay CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andina-labs/yachay/internal/config"
	"github.com/andina-labs/yachay/internal/embedding"
	"github.com/andina-labs/yachay/internal/generate"
	"github.com/andina-labs/yachay/internal/lexical"
	"github.com/andina-labs/yachay/internal/pipeline"
	"github.com/andina-labs/yachay/internal/rerank"
	"github.com/andina-labs/yachay/internal/storage"
	"github.com/andina-labs/yachay/internal/vector"
	"github.com/andina-labs/yachay/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/yachay/config.yaml"

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "yachay",
	Short: "Grounded question answering over a tourism document corpus",
	Long: `Yachay ingests extracted document text, indexes it for hybrid
(vector + keyword) retrieval, and answers questions grounded in the
indexed sources with citations and a confidence score.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	// API keys for capability providers may live in a local .env.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads config from the --config path. When the path is the
// default, a config.yaml in the current directory takes precedence so running
// from the project directory uses the project's config.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return utils.NewLogger(cfg.Debug)
}

// buildService wires the pipeline from config: SQLite chunk store, in-memory
// vector index (loaded from its snapshot when one exists), Bleve lexical
// index, and the HTTP capability providers.
func buildService(cfg *config.Config, logger *zap.Logger) (*pipeline.Service, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	vecIdx, err := vector.NewMemoryIndex(cfg.Pipeline.EmbeddingDimension)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := vecIdx.Load(cfg.Storage.VectorIndexPath); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	lexIdx, err := lexical.NewBleveIndex(cfg.Storage.LexicalIndexPath)
	if err != nil {
		_ = store.Close()
		_ = vecIdx.Close()
		return nil, err
	}

	caps := cfg.Capabilities
	embedder := embedding.NewCachedEmbedder(
		embedding.NewHTTPEmbedder(caps.Embedding, cfg.Pipeline.EmbeddingDimension, caps.RateLimit),
		caps.EmbeddingCacheSize,
	)
	generator := generate.NewHTTPGenerator(caps.Generation)
	scorer := buildScorer(cfg, embedder)

	return pipeline.NewService(store, embedder, vecIdx, lexIdx, generator, scorer, cfg, logger)
}

// buildScorer returns the rerank scorer: a dedicated rerank provider when one
// is configured, otherwise a bi-encoder over the main embedder.
func buildScorer(cfg *config.Config, embedder embedding.Embedder) rerank.Scorer {
	caps := cfg.Capabilities
	if caps.Rerank.BaseURL != "" {
		rerankEmbedder := embedding.NewHTTPEmbedder(caps.Rerank, cfg.Pipeline.EmbeddingDimension, caps.RateLimit)
		return rerank.NewEmbeddingScorer(rerankEmbedder)
	}
	return rerank.NewEmbeddingScorer(embedder)
}
