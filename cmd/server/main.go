// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package main is the entry point for the Neonblog server.
//
// Neonblog serves a public blog (post list, category filter, single
// post with comments) and an authenticated admin area for managing
// posts. Content lives either in a hosted PostgREST-dialect backend
// or in an embedded SQLite database.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from env vars and config file (Koanf v2)
//  2. Backend: REST client against a hosted backend, or embedded SQLite
//  3. Sessions: in-memory or BadgerDB-backed server-side session store
//  4. Gateway: sign-in and per-request session re-validation
//  5. HTTP Server: Chi router with public and guarded admin routes
//
// All long-running work runs under a suture supervisor tree so a
// crashing service restarts without taking the process down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables (NEONBLOG_*), a config file
// (config.yaml), then built-in defaults.
//
// In "sqlite" mode an admin account is bootstrapped from
// NEONBLOG_BACKEND_ADMIN_EMAIL / NEONBLOG_BACKEND_ADMIN_PASSWORD on
// startup when both are set.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the
// supervisor tree stops its services, the HTTP server drains with a
// bounded timeout, and session stores are closed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neonblog/neonblog/internal/api"
	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/config"
	"github.com/neonblog/neonblog/internal/guard"
	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/session"
	"github.com/neonblog/neonblog/internal/supervisor"
	"github.com/neonblog/neonblog/internal/supervisor/services"
)

// sessionCleanupInterval is how often expired sessions are evicted
// from the store.
const sessionCleanupInterval = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("backend_mode", cfg.Backend.Mode).
		Msg("Starting Neonblog server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === BACKEND ===

	var (
		data backend.DataService
		auth backend.AuthService
	)

	switch cfg.Backend.Mode {
	case config.BackendModeREST:
		restCfg := backend.RESTClientConfig{
			BaseURL:           cfg.Backend.URL,
			APIKey:            cfg.Backend.APIKey,
			Timeout:           cfg.Backend.Timeout,
			BreakerDisabled:   cfg.Backend.BreakerDisabled,
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		}
		data = backend.NewRESTClient(restCfg)
		auth = backend.NewRESTAuth(restCfg)
		logging.Info().Str("url", cfg.Backend.URL).Msg("Using hosted REST backend")

	case config.BackendModeSQLite:
		store, err := backend.OpenSQLite(cfg.Backend.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open SQLite backend")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close SQLite backend")
			}
		}()

		sqliteAuth := backend.NewSQLiteAuth(store, cfg.Backend.JWTSecret, cfg.Backend.TokenTTL)
		if cfg.Backend.AdminEmail != "" && cfg.Backend.AdminPassword != "" {
			if err := sqliteAuth.EnsureUser(ctx, cfg.Backend.AdminEmail, cfg.Backend.AdminPassword, "Admin"); err != nil {
				logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
			}
			logging.Info().Str("email", cfg.Backend.AdminEmail).Msg("Admin account ready")
		}

		data = store
		auth = sqliteAuth
		logging.Info().Str("path", cfg.Backend.Path).Msg("Using embedded SQLite backend")

	default:
		logging.Fatal().Str("mode", cfg.Backend.Mode).Msg("Unknown backend mode")
	}

	// === SESSIONS ===

	var sessionStore session.Store

	switch cfg.Security.SessionStore {
	case config.SessionStoreBadger:
		db, err := session.OpenBadger(cfg.Security.SessionStorePath)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open session store")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close session store")
			}
		}()
		sessionStore = session.NewBadgerStore(db)
		logging.Info().Str("path", cfg.Security.SessionStorePath).Msg("Using BadgerDB session store")

	default:
		sessionStore = session.NewMemoryStore()
		logging.Info().Msg("Using in-memory session store")
	}

	gateway := session.NewGateway(sessionStore, auth, cfg.Security.SessionTimeout)

	// === HTTP ===

	handlers := api.NewHandlers(api.HandlersConfig{
		Data:         data,
		Gateway:      gateway,
		CookieName:   cfg.Security.CookieName,
		CookieSecure: cfg.Security.CookieSecure,
	})
	sessionGuard := guard.New(gateway, cfg.Security.CookieName)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handlers, sessionGuard, cfg),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	tree.AddMaintenanceService(services.NewSessionCleanupService(sessionStore, sessionCleanupInterval))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for the supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor closes it.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
