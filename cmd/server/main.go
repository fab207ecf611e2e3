// Package main is the entry point for the evetabi AMM API server. It wires
// together the store, engine and services and runs the HTTP server alongside
// the WebSocket hub and the price broadcast scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"golang.org/x/sync/errgroup"

	"github.com/evetabi/amm/internal/api"
	"github.com/evetabi/amm/internal/config"
	"github.com/evetabi/amm/internal/engine"
	"github.com/evetabi/amm/internal/repository"
	"github.com/evetabi/amm/internal/scheduler"
	"github.com/evetabi/amm/internal/service"
	"github.com/evetabi/amm/internal/ws"
)

func main() {
	memory := flag.Bool("memory", false, "use the in-memory store instead of PostgreSQL")
	flag.Parse()

	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.Get()
	if *memory {
		cfg.Store.Backend = config.StoreMemory
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: validation failed: %v\n", err)
		os.Exit(1)
	}

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting evetabi amm server",
		"env", cfg.Server.Env, "port", cfg.Server.Port, "store", cfg.Store.Backend)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped cleanly")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// ── 2. Store ──────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 3. Engine + services ──────────────────────────────────────────────────
	eng := engine.New()
	marketSvc := service.NewMarketService(store, eng, cfg, logger)
	tradeSvc := service.NewTradeService(store, eng, logger)

	// ── 4. WebSocket hub ──────────────────────────────────────────────────────
	hub := ws.NewHub(api.AllowedOrigins(cfg), logger)
	tradeSvc.SetPublisher(hub)

	// ── 5. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 6. HTTP server ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		MarketSvc: marketSvc,
		TradeSvc:  tradeSvc,
		Hub:       hub,
		Cfg:       cfg,
		Logger:    logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sched := scheduler.NewScheduler(marketSvc, hub, cfg.Broadcast, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// ── 7. Graceful shutdown ──────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining connections…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore returns the configured store and a function releasing it.
func openStore(cfg *config.Config, logger *slog.Logger) (service.Store, func(), error) {
	if cfg.Store.Backend == config.StoreMemory {
		logger.Warn("using in-memory store: state is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	logger.Info("database connected")

	if err = runMigrations(db, cfg.DB.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("migrations applied")

	return repository.NewMarketRepository(db), func() { db.Close() }, nil
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files should use IF NOT EXISTS.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
