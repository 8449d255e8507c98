package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/andina-labs/yachay/internal/pipeline"
	"github.com/andina-labs/yachay/internal/watcher"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file or directory]...",
	Short: "Ingest extracted-text files into the corpus",
	Long: `Ingests one or more files (or every matching file in a directory).
Plain text files become single documents; JSON files may carry pages and
metadata. Re-ingesting a document ID supersedes the stored version.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	paths, err := collectFiles(args, cfg.Watch.Extensions)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no ingestible files found")
	}

	reqs := make([]*pipeline.IngestRequest, 0, len(paths))
	for _, path := range paths {
		req, err := watcher.LoadRequest(path)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	results, err := svc.IngestBatch(context.Background(), reqs)
	if err != nil {
		return err
	}
	for _, res := range results {
		cmd.Printf("%s v%d: %d chunks\n", res.DocumentID, res.Version, res.ChunkCount)
	}
	cmd.Printf("Ingested %d of %d documents\n", len(results), len(reqs))
	return svc.SaveIndexes()
}

// collectFiles expands the arguments into ingestible file paths. Directories
// are scanned one level deep with the configured extension filter; explicit
// file arguments bypass the filter.
func collectFiles(args, extensions []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(arg, e.Name())
			if matchesExtension(path, extensions) {
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}

func matchesExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
