package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andina-labs/yachay/internal/server"
	"github.com/andina-labs/yachay/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP API. When a watch directory is configured, extracted-text
files dropped there are ingested automatically.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch.Directory != "" {
		w := watcher.NewWatcher(cfg.Watch.Directory, cfg.Watch.Extensions, func(path string) {
			req, err := watcher.LoadRequest(path)
			if err != nil {
				logger.Warn("dropped file skipped", zap.String("path", path), zap.Error(err))
				return
			}
			if _, err := svc.Ingest(ctx, req); err != nil {
				logger.Warn("dropped file not ingested", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.NewServer(svc, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	if err := svc.SaveIndexes(); err != nil {
		return err
	}
	return nil
}
