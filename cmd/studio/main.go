// Package main is the entry point for the studio editor server.
// It wires all dependencies together and starts the HTTP server, and the
// agent tool server on stdio when enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/agent"
	"github.com/pitabwire/studio/internal/catalog"
	"github.com/pitabwire/studio/internal/config"
	"github.com/pitabwire/studio/internal/dnd"
	"github.com/pitabwire/studio/internal/invoker"
	"github.com/pitabwire/studio/internal/notify"
	"github.com/pitabwire/studio/internal/observability"
	"github.com/pitabwire/studio/internal/render"
	"github.com/pitabwire/studio/internal/session"
	"github.com/pitabwire/studio/internal/storage"
	"github.com/pitabwire/studio/internal/store"
	"github.com/pitabwire/studio/internal/transport"
	"github.com/pitabwire/studio/internal/workflow"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "", "path to configuration file (defaults only when empty)")
	agentMode := flag.Bool("agent", false, "serve the agent tools on stdio")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	if *agentMode {
		cfg.Agent.Enabled = true
	}
	if cfg.Agent.Enabled {
		// stdout carries the tool protocol.
		cfg.Observability.LogOutput = "stderr"
	}

	// Step 3: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "studio", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 4: Open document storage.
	backend, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("storage initialization failed", zap.Error(err))
		return 1
	}

	// Step 5: Load the component catalog.
	catFile, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		logger.Error("catalog loading failed", zap.Error(err))
		return 1
	}
	registry := catalog.NewRegistry(catFile)
	metrics.SetCatalogItems(float64(registry.Len()))

	// Step 6: Build the workspace of open documents.
	workspace := store.NewWorkspace(backend, logger, store.Options{
		HistoryLimit: cfg.Editor.HistoryLimit,
		Recorder:     metrics,
	})

	// Step 7: Build outbound calls, the action engine and preview sessions.
	client := invoker.NewClient(cfg.Submission, metrics, logger)
	actions := workflow.NewEngine(client, metrics, logger)
	sessions := session.NewManager(func(projectID string) session.Deps {
		return session.Deps{
			Engine:   render.NewEngine(logger),
			Caller:   client,
			Actions:  actions,
			Notifier: notify.NewQueue(cfg.Notifications.TTL, cfg.Notifications.Capacity, logger, notify.WithRecorder(metrics)),
			Recorder: metrics,
			Logger:   logger.With(zap.String("project_id", projectID)),
		}
	})
	workspace.OnOpen(func(projectID string, s *store.Store) {
		sessions.Attach(projectID, s)
	})
	resolver := dnd.NewResolver(registry, metrics, logger)

	// Step 8: Initialize idempotency store (optional).
	idempotencyStore, idempotencyCloser, err := buildIdempotencyStore(ctx, cfg.Idempotency, logger)
	if err != nil {
		logger.Error("idempotency store initialization failed", zap.Error(err))
		return 1
	}

	// Step 9: Build HTTP router.
	readinessChecks := observability.ReadinessChecks{
		CatalogLoaded: func() bool { return registry.Len() > 0 },
		Storage:       backend,
	}
	if hc, ok := idempotencyStore.(observability.HealthChecker); ok {
		readinessChecks.IdempotencyStore = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:         cfg,
		Logger:         logger,
		Workspace:      workspace,
		Catalog:        registry,
		Resolver:       resolver,
		Sessions:       sessions,
		Idempotency:    idempotencyStore,
		IdempotencyTTL: cfg.Idempotency.Store.DefaultTTL,
		Metrics:        metrics,
		Readiness:      readinessChecks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 10: Start background tasks.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	autosaveDone := make(chan struct{})
	go func() {
		defer close(autosaveDone)
		workspace.RunAutosave(bgCtx, cfg.Editor.AutosaveInterval)
	}()

	if cfg.Catalog.File != "" && cfg.Catalog.HotReload {
		watcher := catalog.NewWatcher(registry, cfg.Catalog.File, logger, func(f catalog.File, err error) {
			if err != nil {
				metrics.RecordCatalogReload("error")
				return
			}
			metrics.RecordCatalogReload("ok")
			metrics.SetCatalogItems(float64(len(f.Items)))
		})
		go func() {
			if err := watcher.Run(bgCtx); err != nil {
				logger.Error("catalog watcher stopped", zap.Error(err))
			}
		}()
	}

	// Step 11: Start HTTP server.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("catalog_items", registry.Len()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Step 12: Start the agent tool server (optional). Closing stdin stops
	// the process.
	agentDone := make(chan error, 1)
	if cfg.Agent.Enabled {
		tools := agent.New(agent.Deps{
			Workspace: workspace,
			Catalog:   registry,
			Sessions:  sessions,
			Recorder:  metrics,
			Logger:    logger,
			Project:   cfg.Agent.Project,
			Version:   version,
		})
		go func() { agentDone <- tools.ServeStdio() }()
	}

	// Wait for shutdown signal, server error or the end of the agent session.
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	case err := <-agentDone:
		if err != nil {
			logger.Error("agent tool server error", zap.Error(err))
		}
		logger.Info("agent session ended, shutting down")
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Cancel background tasks; autosave flushes dirty documents on its way out.
	bgCancel()
	<-autosaveDone
	sessions.CloseAll()

	// Close stores.
	if idempotencyCloser != nil {
		idempotencyCloser()
	}
	if err := backend.Close(); err != nil {
		logger.Error("storage close error", zap.Error(err))
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildIdempotencyStore creates the idempotency store based on config.
// Returns a nil store when idempotency is disabled.
func buildIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, logger *zap.Logger) (transport.IdempotencyStore, func(), error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	switch cfg.Store.Driver {
	case "memory", "":
		logger.Info("using in-memory idempotency store")
		return transport.NewMemoryIdempotencyStore(), nil, nil
	case "redis":
		addr := os.Getenv(cfg.Store.AddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("idempotency store: %s environment variable not set", cfg.Store.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Store.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("idempotency store: ping: %w", err)
		}
		logger.Info("using redis idempotency store", zap.String("addr", addr))
		return transport.NewRedisIdempotencyStore(client), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported idempotency store driver: %q", cfg.Store.Driver)
	}
}
