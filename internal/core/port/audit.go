package port

import "context"

// AuditEntry describes one executed named query.
type AuditEntry struct {
	Query        string
	SQL          string
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records executed named queries.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
