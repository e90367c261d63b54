// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package main is the entry point for the CineLens daemon.
//
// CineLens is a single-user personalization engine for a local media
// catalog: it builds a taste profile from the user's ratings, scores
// candidate titles with content-based and learned scorers, and adapts in
// real time as ratings arrive.
//
// # Startup order
//
//  1. Configuration: defaults, then config.yaml (or CINELENS_CONFIG),
//     then CINELENS_* environment overrides (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Persistence: BadgerDB at store.dir (or in-memory)
//  4. Catalog: the JSON catalog file at catalog.path, if configured
//  5. Engine: profile builder, scorers, learning loop, restored from
//     persisted state
//  6. Metrics: Prometheus endpoint on metrics.addr
//
// # Configuration
//
// Common environment overrides:
//   - CINELENS_STORE_DIR: Badger data directory (default /data/cinelens)
//   - CINELENS_STORE_IN_MEMORY=true: ephemeral session, nothing persisted
//   - CINELENS_CATALOG_PATH: catalog JSON file (array of metadata records)
//   - CINELENS_LOG_LEVEL: trace|debug|info|warn|error
//   - CINELENS_METRICS_ADDR: metrics listen address (default :9090)
//
// # Signal handling
//
// The daemon shuts down gracefully on SIGINT and SIGTERM: it stops the
// metrics listener, waits for any in-flight model training, and closes
// the store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/config"
	"github.com/cinelens/cinelens/internal/engine"
	"github.com/cinelens/cinelens/internal/logging"
	"github.com/cinelens/cinelens/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("daemon failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})
	logger := logging.Logger()
	logger.Info().Str("level", cfg.Logging.Level).Msg("cinelens starting")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	lookup, err := openCatalog(cfg)
	if err != nil {
		return err
	}

	eng := engine.New(cfg, lookup, st, logger)
	eng.Restore(context.Background())
	defer eng.Close()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = serveMetrics(cfg.Metrics.Addr)
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint up")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logger.Info().Str("signal", received.String()).Msg("shutting down")

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("metrics shutdown failed")
		}
	}
	return nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Store.InMemory {
		return store.OpenInMemory(logging.Logger())
	}
	return store.Open(cfg.Store.Dir, logging.Logger())
}

// openCatalog loads the configured catalog file, or an empty lookup when
// none is configured. With an empty lookup the engine still serves
// analytics and fallback predictions; profile builds answer "not enough
// data".
func openCatalog(cfg *config.Config) (catalog.Lookup, error) {
	if cfg.Catalog.Path == "" {
		logging.Warn().Msg("no catalog.path configured, running without metadata")
		return catalog.LookupFunc(func(ctx context.Context, ref catalog.Ref) (*catalog.Metadata, error) {
			return nil, catalog.ErrNotFound
		}), nil
	}

	fc, err := catalog.LoadFileCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logging.Info().Int("items", fc.Len()).Str("path", cfg.Catalog.Path).Msg("catalog loaded")
	return fc, nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}
