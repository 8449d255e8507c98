package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/andina-labs/yachay/internal/embedding"
	"github.com/andina-labs/yachay/internal/evaluator"
)

var evaluateOutput string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [query set file]",
	Short: "Run a labeled query set and report retrieval and answer quality",
	Long: `Runs every query of a labeled YAML set through the pipeline and reports
per-query precision, recall, faithfulness, and latency, with overall and
per-category aggregates.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateOutput, "output", "o", "", "write the JSON report to a file instead of stdout")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	caps := cfg.Capabilities
	embedder := embedding.NewCachedEmbedder(
		embedding.NewHTTPEmbedder(caps.Embedding, cfg.Pipeline.EmbeddingDimension, caps.RateLimit),
		caps.EmbeddingCacheSize,
	)
	defer embedder.Close()
	scorer := buildScorer(cfg, embedder)
	report, err := evaluator.New(svc, scorer, logger).Evaluate(context.Background(), args[0])
	if err != nil {
		return err
	}

	if evaluateOutput != "" {
		f, err := os.Create(evaluateOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := report.WriteJSON(f); err != nil {
			return err
		}
		cmd.Printf("Report written to %s\n", evaluateOutput)
		return nil
	}
	return report.WriteJSON(cmd.OutOrStdout())
}
