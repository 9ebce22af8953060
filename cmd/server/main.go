// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Command server runs the Reelist HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reelist/reelist/internal/api"
	"github.com/reelist/reelist/internal/auth"
	"github.com/reelist/reelist/internal/config"
	"github.com/reelist/reelist/internal/logging"
	"github.com/reelist/reelist/internal/models"
	"github.com/reelist/reelist/internal/store"
	"github.com/reelist/reelist/internal/threat"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Str("session_store", cfg.Security.SessionStore).
		Msg("Starting Reelist server")

	var (
		sessions auth.SessionStore
		counters auth.CounterStore
		db       *badger.DB
	)

	switch cfg.Security.SessionStore {
	case "badger":
		opts := badger.DefaultOptions(cfg.Security.DataPath).
			WithLogger(nil)
		db, err = badger.Open(opts)
		if err != nil {
			return fmt.Errorf("open badger at %s: %w", cfg.Security.DataPath, err)
		}
		defer db.Close()

		sessions = auth.NewBadgerSessionStore(db)
		counters = auth.NewBadgerCounterStore(db, cfg.Lockout.Window)
	default:
		sessions = auth.NewMemorySessionStore()
		counters = auth.NewMemoryCounterStore()
	}

	hasher, err := auth.NewPasswordHasher(cfg.Security.BcryptCost, cfg.Security.MinPasswordLength)
	if err != nil {
		return fmt.Errorf("create password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService(&cfg.Security)
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}

	guard := auth.NewGuard(counters, &cfg.Lockout)

	users := store.NewMemoryUserStore()
	reviews := store.NewMemoryReviewStore()

	if err := bootstrapAdmin(cfg, users, hasher); err != nil {
		return fmt.Errorf("bootstrap admin user: %w", err)
	}

	manager := auth.NewManager(users, hasher, guard, sessions,
		cfg.Security.SessionTTL, cfg.Security.StoreTimeout)

	filter := threat.NewFilter(cfg.Threat.Enabled)

	handler := api.NewHandler(manager, tokens, reviews, filter, &cfg.Security)
	router := api.NewRouter(handler, manager, tokens, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if db != nil {
		go runBadgerGC(ctx, db)
	}
	go runSessionCleanup(ctx, sessions)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logging.Info().Msg("Server stopped")
	return nil
}

// bootstrapAdmin seeds the admin account from configuration. Without
// credentials configured the admin panel simply has no account to log into.
func bootstrapAdmin(cfg *config.Config, users store.UserStore, hasher *auth.PasswordHasher) error {
	if cfg.Security.AdminUsername == "" {
		logging.Warn().Msg("No admin credentials configured, admin panel disabled")
		return nil
	}

	hash, err := hasher.Hash(cfg.Security.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     cfg.Security.AdminUsername,
		Email:        cfg.Security.AdminEmail,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    time.Now(),
	}

	if err := users.Create(context.Background(), admin); err != nil {
		return err
	}

	logging.Info().Str("username", admin.Username).Msg("Admin account seeded")
	return nil
}

// runBadgerGC runs value-log garbage collection periodically until ctx is
// cancelled.
func runBadgerGC(ctx context.Context, db *badger.DB) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// runSessionCleanup sweeps expired sessions periodically. Badger-backed
// sessions also expire via TTL; the sweep keeps the memory store bounded and
// removes already-expired Badger entries ahead of compaction.
func runSessionCleanup(ctx context.Context, sessions auth.SessionStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.CleanupExpired(ctx)
			if err != nil {
				logging.Err(err).Msg("Session cleanup failed")
				continue
			}
			if removed > 0 {
				logging.Debug().Int("removed", removed).Msg("Expired sessions removed")
			}
		}
	}
}
