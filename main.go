package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/shift-clock/internal/config"
	"github.com/msomdec/shift-clock/internal/handler"
	"github.com/msomdec/shift-clock/internal/repository/sqlstore"
	"github.com/msomdec/shift-clock/internal/service"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabasePath, cfg.MySQLDSN)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied", "driver", db.Dialect())

	tz := tzconv.NewResolver(cfg.TZCacheSize)
	authService := service.NewAuthService(db.Users(), tz, cfg.JWTSecret, cfg.BcryptCost)
	eventTypeService := service.NewEventTypeService(db.EventTypes())
	entryService := service.NewEntryService(db.Entries(), eventTypeService, tz)

	// Seed the default event types on an empty catalogue (idempotent).
	if err := eventTypeService.SeedDefaults(ctx); err != nil {
		slog.Error("failed to seed event types", "error", err)
		os.Exit(1)
	}

	router := handler.NewRouter(handler.Deps{
		Auth:       authService,
		Entries:    entryService,
		EventTypes: eventTypeService,
		TZ:         tz,
		// 10 attempts per client, then one every 6 seconds.
		AuthLimiter:  service.NewTokenBucket(1.0/6, 10),
		CookieSecure: cfg.CookieSecure,
		AppOrigin:    cfg.AppOrigin,
		AppEnv:       cfg.AppEnv,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
