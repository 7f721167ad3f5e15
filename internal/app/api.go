package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	v1 "github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/upstream"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/mission"
	"github.com/jaennil/guide_helper/backend/gcs/internal/usecase"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/telemetry"
)

// Run blocks until SIGINT/SIGTERM or a server failure. Startup errors are
// returned after everything opened so far has been closed.
func Run(cfg *config.Config) error {
	l := logger.NewZapLogger(cfg.Logger)
	defer l.Sync()

	l.Info("app config", "cfg", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Error("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Server.ShutdownTimeout)
				defer cancel()
				if err := shutdownTracer(shutdownCtx); err != nil {
					l.Error("tracer shutdown failed", "error", err)
				}
			}()
		}
	}

	store, err := cache.NewTileStore(cfg.Cache, l)
	if err != nil {
		return fmt.Errorf("initialize %s tile store: %w", cfg.Cache.Backend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Error("tile store close failed", "error", err)
		}
	}()

	missionStore, err := mission.NewFileStore(cfg.Missions.Dir, l)
	if err != nil {
		return fmt.Errorf("initialize mission store: %w", err)
	}

	warmupRanges, err := usecase.WarmupRangesFrom(cfg.Warmup.Ranges)
	if err != nil {
		return fmt.Errorf("invalid warmup ranges: %w", err)
	}

	fetcher := upstream.NewFetcher(upstream.ConfigFrom(cfg.Upstream), l)
	tileCacheUseCase := usecase.NewTileCacheUseCase(store, fetcher, l)
	missionUseCase := usecase.NewMissionUseCase(missionStore, l, usecase.WithCorruptBackup(cfg.Missions.BackupCorrupt))

	validate := validator.New()
	h := handler.NewHandler(validate, tileCacheUseCase, missionUseCase)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)

	httpServer := newHTTPServer(ctx, cfg.HTTP, router)

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
	}

	serverErr := make(chan error, 1)
	go func() {
		l.Info("starting http server...", "address", listener.Addr().String())
		serverErr <- httpServer.Serve(listener)
	}()

	// warmup starts once the port is bound and stops with the signal
	warmupDone := make(chan struct{})
	if cfg.Warmup.Enabled {
		scheduler := usecase.NewWarmupScheduler(tileCacheUseCase, warmupRanges, l)
		go func() {
			defer close(warmupDone)
			report := scheduler.Run(ctx)
			l.Info("tile warmup finished", "tiles", report.Tiles, "failed", report.Failed)
		}()
	} else {
		close(warmupDone)
	}

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
		stop()
	case <-ctx.Done():
		l.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.Server.ShutdownTimeout)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http_server shutdown completed")
	}

	select {
	case <-warmupDone:
	case <-shutdownCtx.Done():
		l.Warn("timeout waiting for tile warmup to stop")
	}

	l.Info("application shutdown completed")
	return runErr
}

// newHTTPServer detaches request contexts from the shutdown signal so that
// Shutdown drains in-flight requests instead of cancelling them.
func newHTTPServer(ctx context.Context, cfg config.HTTP, h http.Handler) *http.Server {
	srv := http_server.NewServer(cfg.Server, cfg.CORS, h)
	base := context.WithoutCancel(ctx)
	srv.BaseContext = func(net.Listener) context.Context { return base }
	return srv
}
