// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/texrelink/internal/api"
	"github.com/starford/texrelink/internal/assets"
	"github.com/starford/texrelink/internal/manifest"
	"github.com/starford/texrelink/internal/mcpserver"
	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/relink"
	"github.com/starford/texrelink/internal/relinkservice"
	"github.com/starford/texrelink/internal/sse"
	"github.com/starford/texrelink/internal/watch"
)

const manifestLockTimeout = 10 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// openService opens the asset store and builds the relink service on top.
func (a *application) openService(logger *slog.Logger) (*relinkservice.Service, *assets.DB, error) {
	db, err := assets.Open(a.config.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init asset store: %w", err)
	}
	return relinkservice.NewService(db, a.config.Library.Defaults(), logger), db, nil
}

// Run starts the HTTP server, the SSE broker and the library watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_root", cfg.Library.Root),
		slog.Any("extensions", cfg.Library.Extensions),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Library.Root, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	svc, db, err := app.openService(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := svc.Relink(ctx, relinkservice.Request{}); err != nil {
		logger.Warn("initial relink failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	svc.OnEvent(broker.PublishRelinkEvent)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		exts, err := relink.ParseExtensions(cfg.Library.Extensions)
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := watch.Watch(gCtx, cfg.Library.Root, exts, cfg.Watch.Debounce, logger, func(ctx context.Context) error {
				_, err := svc.Relink(ctx, relinkservice.Request{})
				return err
			})
			if err != nil {
				logger.Warn("watcher exited", slog.String("error", err.Error()))
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblocks the watcher when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	logger := app.logger()
	slog.SetDefault(logger)

	svc, db, err := app.openService(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("MCP server starting", slog.String("library_root", app.config.Library.Root))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// ManifestRequest describes a one-shot relink of a YAML manifest.
// Empty fields fall back to the library configuration.
type ManifestRequest struct {
	Path       string
	Root       string
	Extensions []string
	BaseDir    string
	NoFallback bool
	DryRun     bool
}

// RelinkManifest relinks the references listed in a manifest file and,
// unless DryRun is set, writes the rewritten paths back under a file lock.
func RelinkManifest(_ context.Context, req ManifestRequest, opts ...Option) (*models.RelinkReport, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	logger := app.logger()

	unlock, err := manifest.Lock(req.Path, manifestLockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := manifest.Load(req.Path)
	if err != nil {
		return nil, err
	}

	root := req.Root
	if root == "" {
		root = cfg.Library.Root
	}
	exts := req.Extensions
	if exts == nil {
		exts = cfg.Library.Extensions
	}
	base := req.BaseDir
	if base == "" {
		base = m.ResolveBaseDir(req.Path)
	}

	report, err := relink.Relink(root, exts, m.References(), relink.Options{
		BaseDir:        base,
		RelativePrefix: cfg.Library.RelativePrefix,
		StemFallback:   cfg.Library.StemFallback && !req.NoFallback,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	if req.DryRun || len(report.Rewrites) == 0 {
		return report, nil
	}
	m.ApplyRewrites(report.Rewrites)
	if err := manifest.Save(req.Path, m); err != nil {
		return nil, err
	}
	logger.Info("manifest relinked",
		slog.String("manifest", req.Path),
		slog.Int("relinked", report.Relinked),
		slog.Int("missing", report.Missing))
	return report, nil
}
