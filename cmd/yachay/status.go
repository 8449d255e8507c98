package main

import (
	"context"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus size",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	status, err := svc.Status(context.Background())
	if err != nil {
		return err
	}
	cmd.Printf("documents: %d\n", status.Documents)
	cmd.Printf("chunks:    %d\n", status.Chunks)
	cmd.Printf("vectors:   %d\n", status.Vectors)
	return nil
}
