// Package main is the entry point for the route tracking API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/routetracker/internal/cache"
	"github.com/pkordes/routetracker/internal/config"
	"github.com/pkordes/routetracker/internal/handler"
	"github.com/pkordes/routetracker/internal/idgen"
	"github.com/pkordes/routetracker/internal/logging"
	"github.com/pkordes/routetracker/internal/middleware"
	"github.com/pkordes/routetracker/internal/repo"
	"github.com/pkordes/routetracker/internal/service"
	"github.com/pkordes/routetracker/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger, closeLog, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		File:     cfg.LogFile,
		MaxAge:   cfg.LogMaxAge,
		Rotation: cfg.LogRotation,
	}, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logger", "error", err)
		os.Exit(1)
	}
	defer closeLog() //nolint:errcheck
	slog.SetDefault(logger)

	// --- Store ------------------------------------------------------------
	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("entity store ready", "driver", cfg.StoreDriver)

	// --- Position cache ---------------------------------------------------
	// Optional. Without it every position read goes to the store.
	var positions service.PositionCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close() //nolint:errcheck
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			// The cache is best effort; keep serving from the store.
			slog.Warn("position cache unreachable", "addr", cfg.RedisAddr, "error", err)
		}
		positions = cache.NewRedisPositionCache(rdb, cfg.PositionCacheTTL)
	}

	// --- Services ---------------------------------------------------------
	ids, err := idgen.NewSnowflake(cfg.SnowflakeNode)
	if err != nil {
		slog.Error("failed to create id generator", "error", err)
		os.Exit(1)
	}

	srv := handler.NewServer(handler.Services{
		Allocations: service.NewAllocationService(store, logger),
		Tracking:    service.NewTrackingService(store, logger),
		Positions:   service.NewPositionService(store, positions, logger),
		Locations:   service.NewLocationService(store, ids, logger),
		Queries:     service.NewQueryService(store),
	}, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. Authentication is applied per route group inside
	// srv.Routes so /healthz stays public.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Mount("/", srv.Routes(middleware.NewAuthenticator([]byte(cfg.JWTSecret))))

	// --- HTTP Server ------------------------------------------------------
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore builds the entity store selected by cfg.StoreDriver. The returned
// close function releases any connections and is safe to defer.
func openStore(ctx context.Context, cfg config.Config) (repo.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repo.NewMemoryStore(nil, nil), func() {}, nil

	case config.DriverPostgres:
		// New() does not open connections immediately; Ping verifies the DB
		// is reachable before accepting traffic.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if cfg.MigrateOnStart {
			db := stdlib.OpenDBFromPool(pool)
			n, err := migrations.Up(ctx, db)
			db.Close() //nolint:errcheck
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			slog.Info("migrations applied", "count", n)
		}
		return repo.NewPGStore(pool), pool.Close, nil

	default:
		fs, err := repo.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}
