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

	"github.com/starford/noteflow/internal/ai"
	"github.com/starford/noteflow/internal/api"
	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/export"
	"github.com/starford/noteflow/internal/inbox"
	"github.com/starford/noteflow/internal/mcpserver"
	"github.com/starford/noteflow/internal/sse"
	"github.com/starford/noteflow/internal/storage"
	"github.com/starford/noteflow/internal/workspace"
)

// runtime is the set of long-lived components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	broker *sse.Broker
	db     *docstore.DB
	spaces *workspace.Manager
}

func setup(ctx context.Context, opts []Option) (*application, *runtime, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		// stdout belongs to the MCP transport, so logs always go to stderr.
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("ai_enabled", cfg.AI.Enabled()),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Store.EventBuffer)
	db, err := docstore.Open(cfg.Store.Path, broker)
	if err != nil {
		broker.Close()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	var exporter *export.Exporter
	if cfg.Export.Dir != "" {
		dir, err := storage.EnsureFS(cfg.Export.Dir)
		if err != nil {
			_ = db.Close()
			broker.Close()
			return nil, nil, fmt.Errorf("init export dir: %w", err)
		}
		exporter = export.NewExporter(dir, logger)
	}

	gen := app.generator
	if gen == nil {
		gen = newGenerator(cfg.AI, logger)
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		broker: broker,
		db:     db,
		spaces: workspace.NewManager(ctx, db, broker, gen, exporter, cfg.Timing.workspace(), logger),
	}
	return app, rt, nil
}

func newGenerator(cfg AIConfig, logger *slog.Logger) ai.Generator {
	if !cfg.Enabled() {
		return ai.Func(func(context.Context, string) (string, error) {
			return "", errors.New("ai: no api key configured")
		})
	}
	return ai.NewOpenAI(cfg.generator(), logger)
}

// close flushes open workspaces and releases the store.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.spaces.Close(ctx); err != nil {
		rt.logger.Error("workspace shutdown error", slog.String("error", err.Error()))
	}
	rt.broker.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Error("store close error", slog.String("error", err.Error()))
	}
}

func (rt *runtime) newInbox(dir, user string) (*inbox.Inbox, error) {
	fs, err := storage.EnsureFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init inbox dir: %w", err)
	}
	ws, err := rt.spaces.Get(user)
	if err != nil {
		return nil, fmt.Errorf("open inbox workspace: %w", err)
	}
	return inbox.New(fs, rt.db, ws, user, rt.logger), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	appCtx, cancelApp := context.WithCancel(ctx)
	defer cancelApp()

	_, rt, err := setup(appCtx, opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	apiRouter := api.NewRouter(rt.spaces, api.Auth{
		Enabled:     cfg.Auth.AuthEnabled(),
		Tokens:      cfg.Auth.Tokens,
		DefaultUser: cfg.Auth.User,
	}, rt.broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(r.Context()); err != nil {
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

	g, gCtx := errgroup.WithContext(appCtx)

	if cfg.Inbox.Enabled {
		in, err := rt.newInbox(cfg.Inbox.Dir, cfg.Inbox.User)
		if err != nil {
			rt.close()
			return err
		}
		g.Go(func() error {
			if err := in.Sync(gCtx); err != nil {
				logger.Warn("initial inbox sync failed", slog.String("error", err.Error()))
			}
			return in.Watch(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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
		cancelApp()
		return nil
	})

	err = g.Wait()
	rt.close()
	if err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the workspace of the configured user over stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, rt, err := setup(appCtx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	ws, err := rt.spaces.Get(rt.cfg.Auth.User)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	rt.logger.Info("MCP server starting", slog.String("user_id", rt.cfg.Auth.User))
	return mcpserver.New(ws, app.version).ServeStdio()
}

// RunImport imports every markdown file under dir once, as user.
func RunImport(ctx context.Context, dir, user string, opts ...Option) error {
	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, rt, err := setup(appCtx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	in, err := rt.newInbox(dir, user)
	if err != nil {
		return err
	}
	if err := in.Sync(appCtx); err != nil {
		return fmt.Errorf("import %s: %w", dir, err)
	}
	rt.logger.Info("Import finished", slog.String("dir", dir), slog.String("user_id", user))
	return nil
}
