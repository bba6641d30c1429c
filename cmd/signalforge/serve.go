package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/signalforge/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SignalForge HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	a.log.Info("starting SignalForge server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("auth", cfg.Server.APIKey != ""),
		zap.Bool("explain", a.explainer.Enabled()),
	)

	deps := api.Dependencies{
		Pipeline:    a.pipeline,
		Explainer:   a.explainer,
		SignalStore: a.store,
		Metrics:     a.metrics,
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		Explain:        cfg.Server.Explain,
		MetricsPath:    cfg.Metrics.Path,
		DisableMetrics: !cfg.Metrics.Enabled,
		WriteTimeout:   cfg.Pipeline.Timeout + cfg.LLM.Timeout + 15*time.Second,
	}, deps, a.log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	a.log.Info("shutting down SignalForge server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
