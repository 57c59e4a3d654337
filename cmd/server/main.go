package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bbrprep/internal/config"
	"github.com/JonMunkholm/bbrprep/internal/core"
	_ "github.com/JonMunkholm/bbrprep/internal/core/datasets" // Register all datasets
	"github.com/JonMunkholm/bbrprep/internal/database"
	"github.com/JonMunkholm/bbrprep/internal/geo"
	"github.com/JonMunkholm/bbrprep/internal/logging"
	"github.com/JonMunkholm/bbrprep/internal/metrics"
	"github.com/JonMunkholm/bbrprep/internal/source"
	"github.com/JonMunkholm/bbrprep/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	if err := geo.Check(cfg.Pipeline.SourceCRS, cfg.Pipeline.TargetCRS); err != nil {
		slog.Error("projection unavailable", "error", err)
		os.Exit(1)
	}

	deps := core.ServiceDeps{
		Loader:      source.NewDirLoader(cfg.Pipeline.MappingsDir),
		Reader:      source.RawReader{},
		Projectors:  geo.Factory(cfg.Pipeline.SourceCRS, cfg.Pipeline.TargetCRS),
		Limiter:     core.NewRunLimiter(cfg.Run.MaxConcurrent, cfg.Run.MaxWaitTime),
		MaxFileSize: cfg.Run.MaxFileSize,
		RunTimeout:  cfg.Run.Timeout,
	}

	if cfg.Pipeline.Definition != "" {
		def, err := core.LoadDefinition(cfg.Pipeline.Definition)
		if err != nil {
			slog.Error("failed to load definition", "path", cfg.Pipeline.Definition, "error", err)
			os.Exit(1)
		}
		deps.Definition = &def
	}

	var ping func(context.Context) error
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			slog.Error("failed to create run history schema", "error", err)
			os.Exit(1)
		}
		deps.History = core.NewPostgresRunStore(pool)
		ping = pool.Ping
	} else {
		slog.Info("no database configured, run history is kept in memory")
	}

	opts := webOptions(cfg, ping)

	if cfg.Metrics.Enabled {
		m, err := metrics.New()
		if err != nil {
			slog.Error("failed to create metrics", "error", err)
			os.Exit(1)
		}
		if err := m.WatchLimiter(deps.Limiter); err != nil {
			slog.Error("failed to register limiter metrics", "error", err)
			os.Exit(1)
		}
		deps.Observer = m
		opts.Metrics = m.Handler()
	}

	service, err := core.NewService(deps)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}
	slog.Info("datasets registered", "count", core.DatasetCount())

	server := web.NewServer(service, opts)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartHistoryScheduler(jobCtx, core.HistoryConfig{
		RetentionDays: cfg.History.RetentionDays,
		CheckInterval: cfg.History.CheckInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// webOptions maps the loaded configuration onto the HTTP server options.
func webOptions(cfg *config.Config, ping func(context.Context) error) web.Options {
	return web.Options{
		Security:       cfg.Security,
		Rate:           cfg.Rate,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxFileSize:    cfg.Run.MaxFileSize,
		Ping:           ping,
	}
}
