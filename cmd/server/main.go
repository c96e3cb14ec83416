// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package main is the entry point for the Colligo server.
//
// Colligo assembles personalized social feeds and absorbs like activity on a
// fast ephemeral store, converging it into the durable engagement store on a
// schedule. The server initializes components in order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Durable engagement store (DuckDB)
//  3. Ephemeral store (Redis, Badger or in-memory)
//  4. Event bus, candidate resolver, feed pipeline
//  5. Supervision tree: reconciler + feed refresher workers, HTTP API
//
// Graceful shutdown on SIGINT/SIGTERM: in-flight requests get the configured
// shutdown timeout, then the stores are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/colligo-dev/colligo/internal/api"
	"github.com/colligo-dev/colligo/internal/auth"
	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/database"
	"github.com/colligo-dev/colligo/internal/engagement"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/events"
	"github.com/colligo-dev/colligo/internal/feed"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/reconcile"
	"github.com/colligo-dev/colligo/internal/resolver"
	"github.com/colligo-dev/colligo/internal/supervisor"
	"github.com/colligo-dev/colligo/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("ephemeral_driver", cfg.Ephemeral.Driver).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open engagement store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing engagement store")
		}
	}()

	store, err := ephemeral.Open(cfg.Ephemeral)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open ephemeral store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing ephemeral store")
		}
	}()

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event bus")
		}
	}()

	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to initialize token validation")
		}
	}

	// Feed pipeline: resolver -> assembler -> paginator, with the refresher
	// consuming last-page refresh requests off the bus.
	candidates := resolver.New(cfg.Resolver)
	cache := feed.NewCache(store, cfg.Feed)
	assembler := feed.NewAssembler(candidates, db, cache, cfg.Feed)
	refresher := feed.NewRefresher(assembler, cache, bus)
	paginator := feed.NewPaginator(assembler, cache, refresher, cfg.Feed)

	toggler := engagement.NewToggler(store, bus)
	reconciler := reconcile.New(store, db, cfg.Reconcile.Interval)

	handler := api.NewHandler(db, store, paginator, cache, toggler, reconciler, bus)
	router := api.NewRouter(handler, &cfg.Security, jwtManager)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddWorkerService(services.NewReconcilerService(reconciler))
	tree.AddWorkerService(services.NewRefresherService(refresher))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("server stopped")
}
