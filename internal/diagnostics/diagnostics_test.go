package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/guillermoBallester/telemetry-receiver/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type harness struct {
	diag   *Diagnostics
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
	tags   telemetry.TagSet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tags := telemetry.NewTagSet("Testing", "host-a")

	return &harness{
		diag:   New(logger, telemetry.NewInstrumentsFromMeter(mp.Meter("test")), tags),
		reader: reader,
		logs:   &buf,
		tags:   tags,
	}
}

func (h *harness) collect(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func (h *harness) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(h.logs.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func counterValue(t *testing.T, metrics map[string]metricdata.Metrics, name string) int64 {
	t.Helper()
	m, ok := metrics[name]
	if !ok {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestEventTable(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name       string
		emit       func(ctx context.Context, d *Diagnostics)
		id         EventID
		level      string
		exceptions int64
		processed  int64
	}{
		{"requested query", func(ctx context.Context, d *Diagnostics) { d.RequestedQuery(ctx, "GET_WF") }, EventRequestedQuery, "DEBUG", 0, 0},
		{"query found", func(ctx context.Context, d *Diagnostics) { d.QueryFound(ctx, "GET_WF") }, EventQueryFound, "DEBUG", 0, 0},
		{"query not found", func(ctx context.Context, d *Diagnostics) { d.QueryNotFound(ctx, "missing") }, EventQueryNotFound, "ERROR", 1, 0},
		{"file not set", func(ctx context.Context, d *Diagnostics) { d.QueriesFileNameNotSet(ctx) }, EventQueriesFileNameNotSet, "ERROR", 1, 0},
		{"file not found", func(ctx context.Context, d *Diagnostics) { d.QueriesFileNotFound(ctx, "/x.xml") }, EventQueriesFileNotFound, "ERROR", 0, 0},
		{"duplicate name", func(ctx context.Context, d *Diagnostics) { d.QueryNotUnique(ctx, "Q", "/x.xml") }, EventQueryNotUnique, "ERROR", 1, 0},
		{"missing body", func(ctx context.Context, d *Diagnostics) { d.CDataNotFoundForQuery(ctx, "Q", "/x.xml") }, EventCDataNotFoundForQuery, "ERROR", 1, 0},
		{"reloaded", func(ctx context.Context, d *Diagnostics) { d.QueriesReloaded(ctx, "/x.xml", 2) }, EventQueriesReloaded, "INFO", 0, 0},
		{"reload failed", func(ctx context.Context, d *Diagnostics) { d.QueriesReloadFailed(ctx, "/x.xml", boom) }, EventQueriesReloadFailed, "ERROR", 1, 0},
		{"starting", func(ctx context.Context, d *Diagnostics) { d.StartingReceiver(ctx) }, EventStartingReceiver, "INFO", 0, 0},
		{"started", func(ctx context.Context, d *Diagnostics) { d.StartedReceiver(ctx, ":8080") }, EventStartedReceiver, "INFO", 0, 0},
		{"stopped", func(ctx context.Context, d *Diagnostics) { d.StoppedReceiver(ctx) }, EventStoppedReceiver, "INFO", 0, 0},
		{"event received", func(ctx context.Context, d *Diagnostics) { d.EventReceived(ctx) }, EventHTTPEventReceived, "INFO", 0, 1},
		{"event failed", func(ctx context.Context, d *Diagnostics) { d.EventProcessingFailed(ctx, boom) }, EventHTTPEventProcessingFailed, "ERROR", 1, 0},
		{"forecast db error", func(ctx context.Context, d *Diagnostics) { d.ErrorGettingWeatherForecast(ctx, boom) }, EventErrorGettingWeatherForecast, "ERROR", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.emit(context.Background(), h.diag)

			metrics := h.collect(t)
			assert.Equal(t, tt.exceptions, counterValue(t, metrics, telemetry.MetricEventProcessingExceptions))
			assert.Equal(t, tt.processed, counterValue(t, metrics, telemetry.MetricEventProcessedCount))
			_, hasHistogram := metrics[telemetry.MetricEventProcessingTime]
			assert.False(t, hasHistogram)

			entries := h.entries(t)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Equal(t, float64(tt.id), entries[0]["event.id"])
			assert.Equal(t, tt.id.String(), entries[0]["event.name"])
		})
	}
}

func TestEventProcessed_RecordsHistogramWithTags(t *testing.T) {
	h := newHarness(t)
	h.diag.EventProcessed(context.Background(), 42)

	metrics := h.collect(t)
	m, ok := metrics[telemetry.MetricEventProcessingTime]
	require.True(t, ok)
	assert.Equal(t, "ms", m.Unit)

	hist, ok := m.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(1), dp.Count)
	assert.Equal(t, int64(42), dp.Sum)
	want := h.tags.Attributes()
	assert.True(t, dp.Attributes.Equals(&want))

	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, float64(42), entries[0]["duration_ms"])
}

func TestQueryNotFound_CounterCarriesTags(t *testing.T) {
	h := newHarness(t)
	h.diag.QueryNotFound(context.Background(), "missing")

	metrics := h.collect(t)
	sum, ok := metrics[telemetry.MetricEventProcessingExceptions].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	want := h.tags.Attributes()
	assert.True(t, sum.DataPoints[0].Attributes.Equals(&want))

	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "missing", entries[0]["query.name"])
}

func TestQueryExecuted_RecordsQueryDuration(t *testing.T) {
	h := newHarness(t)
	h.diag.QueryExecuted(context.Background(), "GET_WF", 3, 7)

	metrics := h.collect(t)
	hist, ok := metrics[telemetry.MetricQueryDuration].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(7), hist.DataPoints[0].Sum)
}

func TestConcurrentObservations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			h.diag.EventReceived(ctx)
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}

	metrics := h.collect(t)
	assert.Equal(t, int64(50), counterValue(t, metrics, telemetry.MetricEventProcessedCount))
}

type panicCounter struct{ noop.Int64Counter }

func (panicCounter) Add(context.Context, int64, ...metric.AddOption) { panic("metrics backend down") }

func TestMetricFailure_StillLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	inst := telemetry.NoopInstruments()
	inst.EventProcessingExceptions = panicCounter{}

	d := New(logger, inst, telemetry.NewTagSet("Testing", "host-a"))
	assert.NotPanics(t, func() { d.QueryNotFound(context.Background(), "missing") })
	assert.Contains(t, buf.String(), "could not find query in queries file")
}

type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("log sink down") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panicHandler) WithGroup(string) slog.Handler           { return h }

func TestLogFailure_StillRecordsMetric(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	d := New(slog.New(panicHandler{}), telemetry.NewInstrumentsFromMeter(mp.Meter("test")), telemetry.NewTagSet("Testing", "host-a"))

	assert.NotPanics(t, func() { d.QueryNotFound(context.Background(), "missing") })

	h := &harness{reader: reader}
	assert.Equal(t, int64(1), counterValue(t, h.collect(t), telemetry.MetricEventProcessingExceptions))
}

func TestNew_NilDependencies(t *testing.T) {
	d := New(nil, nil, telemetry.TagSet{})
	assert.NotPanics(t, func() {
		d.EventReceived(context.Background())
		d.EventProcessed(context.Background(), 1)
	})
}

func TestEventID_String(t *testing.T) {
	assert.Equal(t, "QueryNotFound", EventQueryNotFound.String())
	assert.Equal(t, "Event999", EventID(999).String())
}
