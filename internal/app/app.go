package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/ctxlog"
	"github.com/vk/slurmcodec/internal/hcl_adapter"
	"github.com/vk/slurmcodec/internal/metric"
	"github.com/vk/slurmcodec/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	loader   *hcl_adapter.Loader
	catalogs *catalog.Store
	metrics  *metric.Metrics
	gatherer *prometheus.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own logger, registry and metrics. logW receives
// the logs only, so command output can go elsewhere. It panics when the
// descriptors are inconsistent or the catalogs cannot be loaded.
func NewApp(logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All descriptor modules registered.", "modules", len(modules), "types", reg.Len())

	// A registry that fails validation is a programmer error.
	reg.MustValidate(ctx)
	logger.Debug("Registry validation passed.")

	gatherer := prometheus.NewRegistry()
	metrics, err := metric.New(gatherer)
	if err != nil {
		panic(err)
	}

	a := &App{
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		registry: reg,
		loader:   hcl_adapter.NewLoader(reg, hcl_adapter.WithObserver(metrics)),
		catalogs: catalog.NewStore(&catalog.Set{}),
		metrics:  metrics,
		gatherer: gatherer,
	}
	if err := a.Reload(ctx); err != nil {
		panic(err)
	}
	return a
}

// Context returns the context carrying the application's logger.
func (a *App) Context() context.Context { return a.ctx }

// Config returns the configuration the App was built with.
func (a *App) Config() *Config { return a.config }

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry { return a.registry }

// Catalogs returns the current catalog snapshot.
func (a *App) Catalogs() *catalog.Set { return a.catalogs.Snapshot() }

// Metrics returns the conversion metrics.
func (a *App) Metrics() *metric.Metrics { return a.metrics }

// Reload reads the configured catalog paths again and swaps the result in.
// Conversions already running keep the snapshot they started with.
func (a *App) Reload(ctx context.Context) error {
	set, err := a.loader.Load(ctx, a.config.CatalogPaths...)
	if err != nil {
		return fmt.Errorf("failed to load catalogs: %w", err)
	}
	a.catalogs.Replace(set)
	a.logger.Info("Catalogs loaded.", "tres", len(set.TRES), "qos", len(set.QOS), "assoc", len(set.Assocs))
	return nil
}

// WriteMetrics writes the metrics in the text exposition format to the
// configured metrics file, for node_exporter's textfile collector. It does
// nothing when no file is configured.
func (a *App) WriteMetrics() error {
	if a.config.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.config.MetricsFile, a.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	a.logger.Debug("Metrics written.", "file", a.config.MetricsFile)
	return nil
}
