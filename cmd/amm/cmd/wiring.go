package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/internal/storage"

	_ "github.com/lugondev/go-amm/internal/storage/mongo"
	_ "github.com/lugondev/go-amm/internal/storage/mysql"
	_ "github.com/lugondev/go-amm/internal/storage/pebble"
	_ "github.com/lugondev/go-amm/internal/storage/postgres"
)

// newMetrics builds the configured metrics collection. registry is non-nil
// for the prometheus backend.
func newMetrics(cfg *config.Config) (collection *metrics.Collection, registry *prometheus.Registry) {
	collection = metrics.NewCollection()
	if !cfg.Metrics.Enabled {
		return collection, nil
	}
	switch cfg.Metrics.Backend {
	case "prometheus":
		registry = prometheus.NewRegistry()
		collection.Add(metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, registry))
	default:
		collection.Add(metrics.NewLogMetrics(logger))
	}
	return collection, registry
}

// serveMetrics exposes registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// openRepository connects the configured journal store. It returns nil when
// the database is disabled.
func openRepository(ctx context.Context, cfg *config.Config) (*storage.ConnectionManager, storage.Repository, error) {
	if !cfg.Database.Enabled {
		return nil, nil, nil
	}
	cm, err := storage.NewConnectionManager(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo, err := cm.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cm, repo, nil
}

func runtimeRent(cfg *config.Config) runtime.Rent {
	return runtime.Rent{
		LamportsPerByteYear: cfg.Runtime.LamportsPerByteYear,
		ExemptionThreshold:  cfg.Runtime.ExemptionThreshold,
	}
}

type query struct {
	ctx  context.Context
	repo storage.Repository
}
