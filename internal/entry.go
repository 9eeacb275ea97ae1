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
	"golang.org/x/sync/errgroup"

	"github.com/starford/devtally/internal/api"
	"github.com/starford/devtally/internal/bot"
	"github.com/starford/devtally/internal/command"
	"github.com/starford/devtally/internal/mcpserver"
	"github.com/starford/devtally/internal/sse"
	"github.com/starford/devtally/internal/storage"
	"github.com/starford/devtally/internal/tallyservice"
	"github.com/starford/devtally/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// openStore opens the configured store. The returned func releases it.
func openStore(cfg *Config) (storage.Provider, func(), error) {
	switch cfg.Storage.Driver {
	case DriverSQLite:
		db, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	case DriverMemory:
		return storage.NewMemory(), func() {}, nil
	default:
		f, err := storage.NewJSONFile(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init json store: %w", err)
		}
		return f, func() {}, nil
	}
}

// Run starts the bot with the given options, plus the HTTP API and the data
// file watcher when configured. It returns when ctx is cancelled, a
// shutdown signal arrives, or a component fails.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("data_path", cfg.Storage.Path),
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.Bool("watch_enabled", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client, username := app.botClient, app.botUsername
	if client == nil {
		if err := cfg.Bot.Validate(); err != nil {
			return err
		}
		botAPI, err := bot.Dial(cfg.Bot.Token, cfg.Bot.Debug)
		if err != nil {
			return fmt.Errorf("connect to bot api: %w", err)
		}
		client, username = botAPI, botAPI.Self.UserName
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := tallyservice.NewService(store, tallyservice.WithEvents(broker.PublishTallyEvent))
	tg := bot.New(client, command.NewHandler(svc), logger, username, cfg.Bot.PollTimeout)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// The process lives as long as the poller.
	g.Go(func() error {
		defer stop()
		return tg.Run(gCtx)
	})

	if src, ok := store.(*storage.JSONFile); ok && cfg.Watch.Enabled {
		// Prime the watcher's view of the file with the current content.
		if _, err := src.Load(gCtx); err != nil {
			logger.Warn("initial load failed", slog.String("error", err.Error()))
		}
		g.Go(func() error {
			return watch.Watch(gCtx, src, logger, func(path string) {
				broker.PublishTallyEvent(sse.KindChanged, path)
			})
		})
	}

	if cfg.App.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: newHTTPHandler(svc, cfg, broker),
		}
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			stop()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Bot stopped successfully")
	return nil
}

func newHTTPHandler(svc *tallyservice.Service, cfg *Config, broker *sse.Broker) http.Handler {
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
		if _, err := svc.Document(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

// withService opens the configured store and passes a service over it to fn.
func withService(opts []Option, fn func(*slog.Logger, *tallyservice.Service) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	store, closeStore, err := openStore(app.config)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(logger, tallyservice.NewService(store))
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise, since stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	return withService(opts, func(logger *slog.Logger, svc *tallyservice.Service) error {
		logger.Info("MCP server starting on stdio")
		return mcpserver.New(svc).ServeStdio()
	})
}

// PrintReport writes the current report to w.
func PrintReport(ctx context.Context, w io.Writer, opts ...Option) error {
	return withService(opts, func(_ *slog.Logger, svc *tallyservice.Service) error {
		text, err := svc.Report(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err
	})
}

// Reset clears the configured store.
func Reset(ctx context.Context, opts ...Option) error {
	return withService(opts, func(logger *slog.Logger, svc *tallyservice.Service) error {
		if err := svc.Reset(ctx); err != nil {
			return err
		}
		logger.Info("tallies reset")
		return nil
	})
}
