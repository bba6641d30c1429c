package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/newthinker/signalforge/internal/config"
	"github.com/newthinker/signalforge/internal/explain"
	"github.com/newthinker/signalforge/internal/llm/factory"
	"github.com/newthinker/signalforge/internal/logger"
	"github.com/newthinker/signalforge/internal/metrics"
	"github.com/newthinker/signalforge/internal/pipeline"
	"github.com/newthinker/signalforge/internal/resolver"
	"github.com/newthinker/signalforge/internal/storage/archive"
	"github.com/newthinker/signalforge/internal/storage/signal"
	"github.com/newthinker/signalforge/internal/tracing"
	"go.uber.org/zap"
)

// app bundles the components shared by analyze and serve.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	metrics   *metrics.Registry
	store     *signal.MemoryStore
	archive   *archive.SignalArchiver // nil when archiving is disabled
	pipeline  *pipeline.Pipeline
	explainer *explain.Explainer
}

// loadConfig reads the config file, or falls back to defaults.
func loadConfig() (*config.Config, bool, error) {
	if cfgFile == "" {
		cfg := config.Defaults()
		cfg.ApplyCredentialEnv()
		return cfg, false, nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, true, fmt.Errorf("loading config: %w", err)
	}
	return cfg, true, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := cfg.Log
	if debug {
		lc.Development = true
		lc.Level = "debug"
	}
	return logger.Build(lc)
}

// bootstrap validates configuration and wires every component. Configuration
// errors surface here before any provider is contacted.
func bootstrap() (*app, error) {
	cfg, fromFile, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if !fromFile {
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// spans go to stderr so analyze output stays clean JSON
	if err := tracing.Init(cfg.Tracing, Version, os.Stderr); err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	reg := metrics.NewRegistry()

	res, err := cfg.Resolver(log, resolver.WithObserver(reg))
	if err != nil {
		return nil, err
	}

	store := signal.NewMemoryStore(cfg.Store.MaxSignals)
	store.OnSizeChange(reg.SetSignalsStored)

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithRecorder(reg),
		pipeline.WithSink(store),
	}

	backend, err := archive.Open(cfg.Archive.Type, cfg.Archive.Path, archive.S3Config{
		Bucket:    cfg.Archive.S3.Bucket,
		Endpoint:  cfg.Archive.S3.Endpoint,
		Region:    cfg.Archive.S3.Region,
		AccessKey: cfg.Archive.S3.AccessKey,
		SecretKey: cfg.Archive.S3.SecretKey,
		Prefix:    cfg.Archive.S3.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	var archiver *archive.SignalArchiver
	if backend != nil {
		archiver = archive.NewSignalArchiver(backend, log, reg)
		opts = append(opts, pipeline.WithSink(archiver))
		log.Info("archiving signals", zap.String("type", cfg.Archive.Type))
	}

	provider, err := factory.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   reg,
		store:     store,
		archive:   archiver,
		pipeline:  pipeline.New(cfg.PipelineOptions(), res, opts...),
		explainer: explain.New(provider, log, cfg.LLM.Timeout),
	}, nil
}

// close flushes spans and logs.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil {
		a.log.Warn("tracing shutdown failed", zap.Error(err))
	}
	_ = a.log.Sync()
}
