// Package main is the entry point for the load-shedding tracker server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loadshedding-tracker/backend/internal/api"
	"github.com/loadshedding-tracker/backend/internal/cache"
	"github.com/loadshedding-tracker/backend/internal/config"
	"github.com/loadshedding-tracker/backend/internal/feed"
	"github.com/loadshedding-tracker/backend/internal/logger"
	"github.com/loadshedding-tracker/backend/internal/schedule"
	"github.com/loadshedding-tracker/backend/internal/storage"
	"github.com/loadshedding-tracker/backend/internal/store"
	"github.com/loadshedding-tracker/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP server address (overrides server.addr)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides server.static_dir)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *staticDir != "" {
		cfg.Server.StaticDir = *staticDir
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Server.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	level, _ := cfg.LogLevel()
	log := logger.NewWithLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting load-shedding tracker", "version", version, "addr", cfg.Server.Addr)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize the in-memory live updates journal
	db, err := storage.NewMemoryDB("")
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	if _, err := storage.RunMigrations(ctx, db, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	broadcaster := websocket.NewEventBroadcaster(hub, log)

	// Initialize the store and everything that follows its changes
	st := store.New()
	responses := cache.New(cfg.Cache.TTL)
	recorder := feed.NewRecorder(storage.NewUpdateRepository(db), log, cfg.Feed.Limit,
		feed.OnRecord(broadcaster.BroadcastFeedUpdate),
	)

	st.Subscribe(func(store.Change) { responses.Clear() })
	st.Subscribe(recorder.HandleChange)
	st.Subscribe(broadcaster.HandleChange)

	if err := recorder.Announce(ctx, "Load shedding tracker started"); err != nil {
		log.Warn("failed to record startup alert", "error", err)
	}
	if cfg.Store.Seed {
		st.Seed(time.Now())
		log.Info("store seeded with sample data", "areas", len(st.Areas()), "schedules", len(st.Schedules()))
	}

	// Initialize reconciliation scheduler
	reconciler := schedule.NewReconciler(st, log, cfg.Scheduler.Interval)

	// Initialize HTTP router with services
	router := api.NewRouter(api.Services{
		Store:      st,
		DB:         db,
		Feed:       recorder,
		Cache:      responses,
		Hub:        hub,
		Reconciler: reconciler,
		Location:   loc,
		Clock:      time.Now,
		Logger:     log,
		StaticDir:  cfg.Server.StaticDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := reconciler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		reconciler.Stop()
		return nil
	})

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url, err := healthCheckURL(addr)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// healthCheckURL points at the local health endpoint on the port of addr,
// whatever host the server binds to.
func healthCheckURL(addr string) (string, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	return "http://" + net.JoinHostPort("localhost", port) + "/api/health", nil
}
