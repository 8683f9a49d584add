// Package audit keeps an append-only journal of executed named queries.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"go.opentelemetry.io/otel/trace"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	Timestamp    string  `json:"ts"`
	Query        string  `json:"query"`
	SQL          string  `json:"sql"`
	RowsReturned int     `json:"rows_returned"`
	DurationMS   int64   `json:"duration_ms"`
	TraceID      string  `json:"trace_id,omitempty"`
	Error        *string `json:"error"`
}

// New returns a FileAuditor for path, or a NoopAuditor when path is empty.
func New(path string) (port.QueryAuditor, error) {
	if path == "" {
		return NoopAuditor{}, nil
	}
	return NewFileAuditor(path)
}

// FileAuditor writes audit entries as NDJSON (one JSON object per line) to a file.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Record appends entry, tagged with the trace id found in ctx if any. Write
// failures are dropped so auditing never fails a request.
func (a *FileAuditor) Record(ctx context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:    a.now().UTC().Format(time.RFC3339Nano),
		Query:        entry.Query,
		SQL:          entry.SQL,
		RowsReturned: entry.RowsReturned,
		DurationMS:   entry.DurationMS,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fe.TraceID = sc.TraceID().String()
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe)
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
