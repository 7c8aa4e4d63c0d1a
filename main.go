// Command member-directory serves the member registry HTTP API.
//
// Configuration comes from the environment (and an optional .env file);
// see package config for the recognised keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skryldev/member-directory/api"
	"github.com/Skryldev/member-directory/config"
	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/db/migrate"
	"github.com/Skryldev/member-directory/service"
	"github.com/Skryldev/member-directory/telemetry"
)

const connectRetryDelay = 2 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("member-directory stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ────────────────────────────────────────────────────────
	tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("tracer provider shutdown", "error", err)
		}
	}()
	metrics := telemetry.NewMetrics()

	// ── Store ────────────────────────────────────────────────────────────
	driverName, dsn, err := db.ParseDatabaseURL(cfg.DatabaseURL, cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	dbCfg := db.Config{
		DSN:             dsn,
		DriverName:      driverName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		DefaultTimeout:  cfg.DBQueryTimeout,
		Hooks: []db.Hook{
			db.NewLogHook(db.LogHookConfig{
				Logger:             logger,
				SlowQueryThreshold: cfg.DBSlowQueryThreshold,
				LogArgs:            cfg.DBLogArgs,
			}),
			db.NewMetricsHook(metrics),
			db.NewTracingHook(telemetry.NewQueryTracer(tp, db.DialectFor(driverName).String())),
		},
	}

	var store *db.DB
	err = db.WithRetry(ctx, db.RetryConfig{MaxAttempts: cfg.DBConnectAttempts, Delay: connectRetryDelay}, func() error {
		s, err := db.Open(dbCfg)
		if err != nil {
			logger.Warn("database not reachable", "driver", driverName, "error", err)
			return err
		}
		store = s
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()
	logger.Info("database connected", "driver", driverName, "dialect", store.Dialect().String())

	if cfg.AutoMigrate {
		if err := migrateSchema(ctx, store, driverName, dsn, logger); err != nil {
			return err
		}
	}

	// ── HTTP ─────────────────────────────────────────────────────────────
	handler := api.NewRouter(api.Deps{
		Members: service.NewMemberService(store, logger),
		Store:   store,
		Credentials: api.Credentials{
			Username:     cfg.AuthUsername,
			Password:     cfg.AuthPassword,
			PasswordHash: cfg.AuthPasswordHash,
		},
		Logger:            logger,
		Metrics:           metrics,
		LegacyStatusCodes: cfg.LegacyStatusCodes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "legacy_status_codes", cfg.LegacyStatusCodes)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// migrateSchema brings the members table up to date. Targets golang-migrate
// cannot address on its own (in-memory SQLite) get the embedded DDL applied
// over the open pool instead.
func migrateSchema(ctx context.Context, store *db.DB, driverName, dsn string, logger *slog.Logger) error {
	runner, err := migrate.New(driverName, dsn, logger)
	if err != nil {
		logger.Info("applying embedded schema over the pool", "reason", err.Error())
		if err := migrate.EnsureSchema(ctx, store); err != nil {
			return err
		}
		return nil
	}
	defer runner.Close()

	if err := runner.Up(); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, err := runner.Version()
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	logger.Info("schema ready", "version", version, "dirty", dirty)
	return nil
}
