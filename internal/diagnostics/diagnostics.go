// Package diagnostics is the single sink for domain events. Every method
// records its metric (when the event maps to one) and then writes one
// structured log line, so logs and metrics for an event cannot drift apart.
package diagnostics

import (
	"context"
	"io"
	"log/slog"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"github.com/guillermoBallester/telemetry-receiver/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
)

var (
	_ port.QueryDiagnostics     = (*Diagnostics)(nil)
	_ port.EventDiagnostics     = (*Diagnostics)(nil)
	_ port.LifecycleDiagnostics = (*Diagnostics)(nil)
)

// Diagnostics couples the receiver's logger with its metric instruments.
// Safe for concurrent use; it holds no mutable state.
type Diagnostics struct {
	logger *slog.Logger
	inst   *telemetry.Instruments
	tags   metric.MeasurementOption
}

// New builds the facade. A nil logger discards logs and nil instruments
// record nothing.
func New(logger *slog.Logger, inst *telemetry.Instruments, tags telemetry.TagSet) *Diagnostics {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if inst == nil {
		inst = telemetry.NoopInstruments()
	}
	return &Diagnostics{
		logger: logger.With(slog.String("component", "telemetry_receiver")),
		inst:   inst,
		tags:   tags.Option(),
	}
}

func (d *Diagnostics) RequestedQuery(ctx context.Context, name string) {
	d.log(ctx, slog.LevelDebug, EventRequestedQuery, "query requested from queries file",
		slog.String("query.name", name))
}

func (d *Diagnostics) QueriesFileNameNotSet(ctx context.Context) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventQueriesFileNameNotSet, "queries file path has not been set in configuration")
}

func (d *Diagnostics) QueriesFileNotFound(ctx context.Context, path string) {
	d.log(ctx, slog.LevelError, EventQueriesFileNotFound, "queries file not found",
		slog.String("query.file", path))
}

func (d *Diagnostics) QueryNotFound(ctx context.Context, name string) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventQueryNotFound, "could not find query in queries file",
		slog.String("query.name", name))
}

func (d *Diagnostics) QueryFound(ctx context.Context, name string) {
	d.log(ctx, slog.LevelDebug, EventQueryFound, "query successfully found in queries file",
		slog.String("query.name", name))
}

func (d *Diagnostics) QueryNotUnique(ctx context.Context, name, file string) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventQueryNotUnique, "query name must be unique in queries file",
		slog.String("query.name", name),
		slog.String("query.file", file))
}

func (d *Diagnostics) CDataNotFoundForQuery(ctx context.Context, name, file string) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventCDataNotFoundForQuery, "can't find CDATA with query string for query",
		slog.String("query.name", name),
		slog.String("query.file", file))
}

func (d *Diagnostics) QueriesReloaded(ctx context.Context, file string, count int) {
	d.log(ctx, slog.LevelInfo, EventQueriesReloaded, "queries file reloaded",
		slog.String("query.file", file),
		slog.Int("query.count", count))
}

func (d *Diagnostics) QueriesReloadFailed(ctx context.Context, file string, err error) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventQueriesReloadFailed, "queries file reload failed, keeping previous queries",
		slog.String("query.file", file),
		errAttr(err))
}

func (d *Diagnostics) StartingReceiver(ctx context.Context) {
	d.log(ctx, slog.LevelInfo, EventStartingReceiver, "the receiver endpoints API is starting")
}

func (d *Diagnostics) StartedReceiver(ctx context.Context, addr string) {
	d.log(ctx, slog.LevelInfo, EventStartedReceiver, "the receiver endpoints API is started",
		slog.String("server.address", addr))
}

func (d *Diagnostics) StoppedReceiver(ctx context.Context) {
	d.log(ctx, slog.LevelInfo, EventStoppedReceiver, "the receiver endpoints API is stopped")
}

func (d *Diagnostics) EventProcessingFailed(ctx context.Context, err error) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventHTTPEventProcessingFailed, "failed processing HTTP event", errAttr(err))
}

func (d *Diagnostics) EventReceived(ctx context.Context) {
	d.observe(func() { d.inst.EventProcessedCount.Add(ctx, 1, d.tags) })
	d.log(ctx, slog.LevelInfo, EventHTTPEventReceived, "received HTTP event")
}

func (d *Diagnostics) EventProcessed(ctx context.Context, elapsedMS int64) {
	d.observe(func() { d.inst.EventProcessingTime.Record(ctx, elapsedMS, d.tags) })
	d.log(ctx, slog.LevelDebug, EventHTTPEventProcessed, "processed HTTP event successfully",
		slog.Int64("duration_ms", elapsedMS))
}

func (d *Diagnostics) ErrorGettingWeatherForecast(ctx context.Context, err error) {
	d.countException(ctx)
	d.log(ctx, slog.LevelError, EventErrorGettingWeatherForecast, "error getting weather forecasts from database", errAttr(err))
}

func (d *Diagnostics) QueryExecuted(ctx context.Context, name string, rows int, elapsedMS int64) {
	d.observe(func() { d.inst.QueryDuration.Record(ctx, elapsedMS, d.tags) })
	d.log(ctx, slog.LevelDebug, EventQueryExecuted, "named query executed",
		slog.String("query.name", name),
		slog.Int("db.response.rows", rows),
		slog.Int64("duration_ms", elapsedMS))
}

func (d *Diagnostics) countException(ctx context.Context) {
	d.observe(func() { d.inst.EventProcessingExceptions.Add(ctx, 1, d.tags) })
}

// observe runs a metric step. A failing metrics backend must not stop the log step.
func (d *Diagnostics) observe(record func()) {
	defer func() { _ = recover() }()
	record()
}

func (d *Diagnostics) log(ctx context.Context, level slog.Level, id EventID, msg string, attrs ...slog.Attr) {
	defer func() { _ = recover() }()
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, slog.Int("event.id", int(id)), slog.String("event.name", id.String()))
	all = append(all, attrs...)
	d.logger.LogAttrs(ctx, level, msg, all...)
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error.message", "")
	}
	return slog.String("error.message", err.Error())
}
