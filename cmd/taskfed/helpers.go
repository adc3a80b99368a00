package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"taskfed/internal/aggregator"
	"taskfed/internal/config"
	"taskfed/internal/logging"
	"taskfed/internal/registry"
	"taskfed/internal/router"
)

// environment bundles everything a command needs to talk to the federation
type environment struct {
	cfg    *config.Config
	logger *logging.Logger
	router *router.Router
	agg    *aggregator.Aggregator
}

// newLogger builds a logger from the loaded configuration
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(cfg.Logging.Level),
	})
}

// mustGetRoot returns the working directory or exits
func mustGetRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving working directory: %v\n", err)
		os.Exit(1)
	}
	return cwd
}

// withEnvironment loads configuration and the source registry, brings the
// router up, runs fn, and tears the router down again.
func withEnvironment(fn func(ctx context.Context, env *environment) error) error {
	root := mustGetRoot()

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	reg, err := registry.Load(filepath.Join(root, ".taskfed", cfg.RegistryPath))
	if err != nil {
		return fmt.Errorf("failed to load source registry (run 'taskfed init' first): %w", err)
	}

	logger := newLogger(cfg)

	strategy, recognized := aggregator.ParseStrategy(cfg.Aggregate.ConflictStrategy)
	if !recognized {
		logger.Warn("Unrecognized conflict strategy, falling back to priority", map[string]interface{}{
			"configured": cfg.Aggregate.ConflictStrategy,
		})
	}

	ctx := context.Background()

	r := router.NewRouter(cfg.Router, logger)
	if err := r.Initialize(ctx, reg.Enabled()); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}
	defer func() {
		_ = r.Shutdown(ctx)
	}()

	env := &environment{
		cfg:    cfg,
		logger: logger,
		router: r,
		agg: aggregator.New(aggregator.Config{
			Parallel:     cfg.Aggregate.ParallelQueries,
			Strategy:     strategy,
			FetchTimeout: cfg.Aggregate.FetchTimeout(),
		}, logger),
	}

	return fn(ctx, env)
}
