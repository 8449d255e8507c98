package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andina-labs/yachay/internal/models"
)

var (
	queryTopK    int
	queryFilters []string
	queryJSON    bool
	queryTimeout time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the indexed corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 5, "number of context chunks")
	queryCmd.Flags().StringArrayVarP(&queryFilters, "filter", "f", nil, "metadata filter as key=value (repeatable)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the full answer as JSON")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 30*time.Second, "query deadline")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	filters, err := parseFilters(queryFilters)
	if err != nil {
		return err
	}
	answer, err := svc.Query(context.Background(), &models.QueryRequest{
		Question: args[0],
		Filters:  filters,
		TopK:     queryTopK,
		Deadline: queryTimeout,
	})
	if err != nil {
		return err
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Answer)
	cmd.Println()
	if answer.InsufficientInfo {
		return nil
	}
	for i, c := range answer.Citations {
		cmd.Printf("[%d] %s (página %d)\n", i+1, c.DocumentID, c.Page)
	}
	cmd.Printf("\nconfianza: %.2f", answer.Confidence)
	if !answer.Grounded {
		cmd.Printf("  (contiene afirmaciones sin respaldo)")
	}
	cmd.Printf("  %dms\n", answer.LatencyMs)
	return nil
}

// parseFilters converts repeated key=value flags into a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		filters[key] = value
	}
	return filters, nil
}
