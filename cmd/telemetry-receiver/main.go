package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/adapter/address"
	"github.com/guillermoBallester/telemetry-receiver/internal/adapter/cache"
	"github.com/guillermoBallester/telemetry-receiver/internal/adapter/httpapi"
	"github.com/guillermoBallester/telemetry-receiver/internal/adapter/postgres"
	"github.com/guillermoBallester/telemetry-receiver/internal/adapter/xmlquery"
	"github.com/guillermoBallester/telemetry-receiver/internal/audit"
	"github.com/guillermoBallester/telemetry-receiver/internal/config"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/service"
	"github.com/guillermoBallester/telemetry-receiver/internal/diagnostics"
	"github.com/guillermoBallester/telemetry-receiver/internal/telemetry"
)

var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, overrides config.Overrides) error {
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting telemetry-receiver",
		slog.String("version", version),
		slog.String("environment", cfg.Environment),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.Bool("otel", cfg.OTel.Enabled),
		slog.String("cache", cfg.Cache.Backend),
	)

	// Telemetry
	var provider *telemetry.Provider
	inst := telemetry.NoopInstruments()
	tracer := telemetry.NoopTracer()
	if cfg.OTel.Enabled {
		provider, err = telemetry.Init(ctx, telemetry.Config{
			Version:        version,
			Environment:    cfg.Environment,
			TraceExporter:  cfg.OTel.TraceExporter,
			MetricExporter: cfg.OTel.MetricExporter,
			SampleRate:     cfg.OTel.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", slog.String("error.message", err.Error()))
			}
		}()
		inst = telemetry.NewInstruments()
		tracer = provider.Tracer("telemetry-receiver")
		logger.Info("telemetry enabled",
			slog.String("trace_exporter", cfg.OTel.TraceExporter),
			slog.String("metric_exporter", cfg.OTel.MetricExporter),
		)
	}

	diag := diagnostics.New(logger, inst, telemetry.DefaultTagSet(cfg.Environment))

	// Named queries
	registry, err := xmlquery.Load(ctx, cfg.Database.QueryXMLFilePath, diag)
	if err != nil {
		return fmt.Errorf("loading queries: %w", err)
	}
	var queries port.QueryProvider = registry
	if cfg.WatchQueries {
		reloader, err := xmlquery.NewReloader(registry, diag, xmlquery.DefaultDebounce)
		if err != nil {
			return err
		}
		if err := reloader.Start(ctx); err != nil {
			return fmt.Errorf("watching queries file: %w", err)
		}
		defer func() { _ = reloader.Stop() }()
		queries = reloader
	}
	logger.Info("queries loaded",
		slog.String("file", registry.Source()),
		slog.Int("count", registry.Len()),
		slog.Bool("watch", cfg.WatchQueries),
	)

	// Database (optional)
	var executor port.QueryExecutor
	if cfg.Database.ConnectionString != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database.ConnectionString, postgres.PoolConfig{
			MaxConns:        cfg.Database.PoolMaxConns,
			MinConns:        cfg.Database.PoolMinConns,
			MaxConnLifetime: cfg.Database.PoolMaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connecting to database %s: %w", redactDSN(cfg.Database.ConnectionString), err)
		}
		defer pool.Close()

		executor = postgres.NewExecutor(pool, cfg.Database.MaxRows, cfg.Database.QueryTimeout)
		logger.Info("database pool connected",
			slog.String("db.system", "postgresql"),
			slog.String("dsn", redactDSN(cfg.Database.ConnectionString)),
		)
	} else {
		logger.Info("no database configured, stored forecasts disabled")
	}

	auditor, err := audit.New(cfg.AuditLog)
	if err != nil {
		return err
	}
	defer func() { _ = auditor.Close() }()

	// Address lookup
	addrCache, err := cache.New(ctx, cache.Config{
		Backend:    cfg.Cache.Backend,
		DefaultTTL: cfg.Cache.TTL,
		RedisURL:   cfg.Cache.RedisURL,
		KeyPrefix:  cfg.Cache.Prefix,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	if addrCache != nil {
		defer func() { _ = addrCache.Close() }()
	}
	addresses := address.NewCached(address.NewClient(cfg.Address.BaseURL, cfg.Address.Timeout), addrCache, cfg.Cache.TTL, logger)

	// Services
	querySvc := service.NewQueryService(queries, domain.NewReadOnlyValidator(), executor, auditor, diag, logger, tracer)
	forecastSvc := service.NewForecastService(addresses, querySvc, diag, logger, tracer)

	srv := httpapi.New(cfg.HTTPAddr, forecastSvc, provider.MetricsHandler(), logger, diag)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// redactDSN masks the password of a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
