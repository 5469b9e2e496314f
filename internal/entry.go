// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/planner/internal/api"
	"github.com/starford/planner/internal/mcpserver"
	"github.com/starford/planner/internal/planservice"
	"github.com/starford/planner/internal/sse"
	"github.com/starford/planner/internal/storage"
)

// staleHintEvery throttles schedule.stale hints on the event stream.
const staleHintEvery = 2 * time.Second

// NewLogger builds the structured JSON logger for cfg.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// OpenStore opens the configured backend. The file store is also returned
// so the caller can watch it; it is nil for SQLite.
func OpenStore(cfg *Config) (storage.Store, *storage.FS, error) {
	switch cfg.Data.Backend {
	case BackendSQLite:
		db, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil, nil
	default:
		if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Data.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		return fs, fs, nil
	}
}

// OpenService opens the store and loads the planner state.
func OpenService(cfg *Config, logger *slog.Logger, extra ...planservice.Option) (*planservice.Service, *storage.FS, error) {
	store, fs, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []planservice.Option{
		planservice.WithLogger(logger),
		planservice.WithCalendar(cfg.Calendar.Options()),
		planservice.WithDefaultSettings(cfg.AI.Settings()),
		planservice.WithGenerator(planservice.HTTPGenerator(cfg.AI.Timeout)),
	}
	svc, err := planservice.Open(store, append(opts, extra...)...)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	return svc, fs, nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend", cfg.Data.Backend),
		slog.String("data_path", cfg.Data.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(staleHintEvery, storage.KeyTasks, storage.KeyActivities)
	defer broker.Close()

	svc, fs, err := OpenService(cfg, logger, planservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer svc.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           withCORS(r, cfg.App.CORS),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// External edits to the state files reload the service.
	if fs != nil {
		g.Go(func() error {
			err := storage.Watch(gCtx, fs, logger, func(key string, removed bool) {
				changed, err := svc.Reload(gCtx, key)
				if err != nil {
					logger.Warn("reload failed",
						slog.String("key", key),
						slog.String("error", err.Error()))
					return
				}
				if changed {
					logger.Info("state reloaded from disk",
						slog.String("key", key),
						slog.Bool("removed", removed))
				}
			})
			if err != nil {
				logger.Warn("file watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		// Event streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the planner tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(app.config, out)
	slog.SetDefault(logger)

	svc, _, err := OpenService(app.config, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

func withCORS(h http.Handler, cfg CORSConfig) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "If-Match", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition"},
		AllowCredentials: true,
	})
	return c.Handler(h)
}
