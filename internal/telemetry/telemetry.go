package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies the receiver in traces and metrics.
const ServiceName = "TelemetryReceiver"

// Exporter names accepted by Config.
const (
	ExporterNone       = "none"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

// Config selects exporters and resource attributes.
type Config struct {
	Version        string
	Environment    string
	InstanceID     string
	TraceExporter  string  // none, otlp, stdout
	MetricExporter string  // none, otlp, prometheus
	SampleRate     float64 // 0 < rate <= 1

	// TraceWriter receives spans when TraceExporter is stdout. Defaults to os.Stderr.
	TraceWriter io.Writer
}

// Provider holds the OTel trace and metric providers for graceful shutdown.
type Provider struct {
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics http.Handler
}

// Init creates and registers OTel trace and metric providers.
// The OTEL_EXPORTER_OTLP_ENDPOINT env var is read by the OTel SDK automatically.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.InstanceID == "" {
		cfg.InstanceID = Hostname()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.ServiceInstanceID(cfg.InstanceID),
			semconv.DeploymentEnvironment(cfg.Environment),
			attribute.String(TagRol, cfg.InstanceID),
			attribute.String(TagEnvironment, cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}

	mp, metricsHandler, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, mp: mp, metrics: metricsHandler}, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}

	switch cfg.TraceExporter {
	case ExporterOTLP:
		exporter, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case ExporterStdout:
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case ExporterNone, "":
		// Spans are still created so trace ids reach the logs.
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.TraceExporter)
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	var handler http.Handler

	switch cfg.MetricExporter {
	case ExporterOTLP:
		exporter, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	case ExporterPrometheus:
		registry := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
		handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	case ExporterNone, "":
	default:
		return nil, nil, fmt.Errorf("unsupported metric exporter %q", cfg.MetricExporter)
	}

	return sdkmetric.NewMeterProvider(opts...), handler, nil
}

// MetricsHandler returns the Prometheus scrape handler, or nil when the
// prometheus exporter is not selected.
func (p *Provider) MetricsHandler() http.Handler {
	if p == nil {
		return nil
	}
	return p.metrics
}

// Tracer returns a tracer from the registered provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.tp == nil {
		return NoopTracer()
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes and shuts down the trace and metric providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down meter: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NoopTracer returns a tracer that does nothing (for when OTel is disabled).
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("noop")
}
