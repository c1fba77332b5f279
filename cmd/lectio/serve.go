package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MrWong99/lectio/internal/api"
	"github.com/MrWong99/lectio/internal/config"
	"github.com/MrWong99/lectio/internal/health"
	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/internal/store"
	"github.com/MrWong99/lectio/internal/store/postgres"
)

// openStore returns the configured report store and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.PostgresDSN == "" {
		return store.NewMemory(), func() {}, nil
	}
	pg, err := postgres.New(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("report store connected", "backend", "postgres")
	return pg, pg.Close, nil
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, o options, cfg *config.Config, d *deps, tel *observe.Telemetry, level *slog.LevelVar) error {
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var checkers []health.Checker
	if pg, ok := st.(*postgres.Store); ok {
		checkers = append(checkers, health.Checker{Name: "store", Check: pg.Ping})
	}
	probes := health.New(checkers...)

	srv := api.New(d.assessor,
		api.WithStore(st),
		api.WithHealth(probes),
		api.WithMetrics(tel.Metrics),
		api.WithMetricsHandler(tel.Handler()),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	if w := watchConfig(o, d, srv, level); w != nil {
		defer w.Stop()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready, press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, draining")
	probes.SetDraining(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// watchConfig hot-reloads the log level and assessment settings from the
// config file. It returns nil when there is no file to watch.
func watchConfig(o options, d *deps, srv *api.Server, level *slog.LevelVar) *config.Watcher {
	if _, err := os.Stat(o.configPath); err != nil {
		return nil
	}
	w, err := config.NewWatcher(o.configPath, func(_, next *config.Config, diff config.ConfigDiff) {
		applyReload(next, diff, d, srv, level)
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "path", o.configPath, "err", err)
		return nil
	}
	return w
}

func applyReload(next *config.Config, diff config.ConfigDiff, d *deps, srv *api.Server, level *slog.LevelVar) {
	if diff.LogLevelChanged {
		level.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.AssessmentChanged || diff.ContentChanged {
		d.scorer = buildScorer(next, d)
		d.assessor = buildAssessor(next, d.scorer, d.metrics)
		srv.SetAssessor(d.assessor)
		slog.Info("assessment settings reloaded",
			"language", next.Assessment.Language,
			"miscue", next.Assessment.MiscueEnabled(),
			"content", d.scorer != nil,
		)
	}
	if len(diff.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", diff.RestartRequired)
	}
}
