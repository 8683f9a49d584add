package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func readEntries(t *testing.T, path string) []fileEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	var out []fileEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry fileEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry), "line %d: %s", len(out)+1, scanner.Text())
		out = append(out, entry)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	a, err := New("")
	require.NoError(t, err)
	assert.IsType(t, NoopAuditor{}, a)

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	a, err = New(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()
	assert.IsType(t, &FileAuditor{}, a)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewFileAuditor_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewFileAuditor("/nonexistent/dir/audit.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening audit log")
}

func TestFileAuditor_Record_WritesNDJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)
	fa.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	fa.Record(context.Background(), port.AuditEntry{
		Query:        "GET_WEATHER_FORECASTS",
		SQL:          "SELECT 1",
		RowsReturned: 1,
		DurationMS:   42,
	})
	require.NoError(t, fa.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "2026-01-02T03:04:05Z", entry.Timestamp)
	assert.Equal(t, "GET_WEATHER_FORECASTS", entry.Query)
	assert.Equal(t, "SELECT 1", entry.SQL)
	assert.Equal(t, 1, entry.RowsReturned)
	assert.Equal(t, int64(42), entry.DurationMS)
	assert.Empty(t, entry.TraceID)
	assert.Nil(t, entry.Error)
}

func TestFileAuditor_Record_WithErrorAndTrace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	fa.Record(ctx, port.AuditEntry{
		Query: "BAD",
		SQL:   "SELECT bad",
		Err:   fmt.Errorf("syntax error"),
	})
	require.NoError(t, fa.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Error)
	assert.Equal(t, "syntax error", *entries[0].Error)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].TraceID)
}

func TestFileAuditor_Record_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fa.Record(context.Background(), port.AuditEntry{
				Query: "Q",
				SQL:   fmt.Sprintf("SELECT %d", n),
			})
		}(i)
	}
	wg.Wait()
	require.NoError(t, fa.Close())

	assert.Len(t, readEntries(t, path), 50)
}

func TestFileAuditor_Append(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	fa1, err := NewFileAuditor(path)
	require.NoError(t, err)
	fa1.Record(context.Background(), port.AuditEntry{Query: "A", SQL: "SELECT 1"})
	require.NoError(t, fa1.Close())

	fa2, err := NewFileAuditor(path)
	require.NoError(t, err)
	fa2.Record(context.Background(), port.AuditEntry{Query: "B", SQL: "SELECT 2"})
	require.NoError(t, fa2.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Query)
	assert.Equal(t, "B", entries[1].Query)
}

func TestNoopAuditor(t *testing.T) {
	t.Parallel()
	a := NoopAuditor{}
	a.Record(context.Background(), port.AuditEntry{Query: "Q", SQL: "SELECT 1"})
	assert.NoError(t, a.Close())
}
