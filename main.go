// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/danielhkuo/quick-poll/cliparse"
	"github.com/danielhkuo/quick-poll/db"
	"github.com/danielhkuo/quick-poll/live"
	"github.com/danielhkuo/quick-poll/mongostore"
	"github.com/danielhkuo/quick-poll/router"
	"github.com/danielhkuo/quick-poll/store"
	"github.com/danielhkuo/quick-poll/verify"
)

func openStore(cfg cliparse.Config) (store.PollStore, error) {
	switch cfg.DatabaseType {
	case cliparse.DatabaseMongo:
		return mongostore.Open(cfg.DatabaseURL)
	case cliparse.DatabasePostgres:
		return db.Open(db.DialectPostgres, cfg.DatabaseURL)
	default:
		return db.Open(db.DialectSQLite, cfg.DatabaseURL)
	}
}

func main() {
	// A missing .env is fine
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded .env")
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			slog.Error("sentry init failed", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Connect to the database; schema and indexes are created on open
	pollStore, err := openStore(cfg)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer pollStore.Close()
	slog.Info("Database ready", "type", cfg.DatabaseType)

	var verifier verify.Verifier
	if cfg.TurnstileDisabled {
		slog.Warn("human verification disabled")
		verifier = verify.Disabled{}
	} else {
		verifier = verify.NewTurnstile(cfg.TurnstileSecretKey, cfg.TurnstileURL, cfg.VerifyTimeout)
	}

	broadcaster := live.NewBroadcaster(live.NewRegistry(), cfg.BroadcastTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mongo expires polls with a TTL index
	if cfg.DatabaseType != cliparse.DatabaseMongo {
		go store.RunSweeper(ctx, pollStore, cfg.SweepInterval, broadcaster.ClosePolls)
	}

	// Create router
	handler := router.NewRouter(pollStore, verifier, broadcaster, cfg)

	// Create server
	server := http.Server{
		Handler:           handler,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
