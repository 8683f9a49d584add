package port

import "context"

// QueryDiagnostics reports query file loading and named query lookups.
type QueryDiagnostics interface {
	RequestedQuery(ctx context.Context, name string)
	QueryFound(ctx context.Context, name string)
	QueryNotFound(ctx context.Context, name string)
	QueriesFileNameNotSet(ctx context.Context)
	QueriesFileNotFound(ctx context.Context, path string)
	QueryNotUnique(ctx context.Context, name, file string)
	CDataNotFoundForQuery(ctx context.Context, name, file string)
	QueriesReloaded(ctx context.Context, file string, count int)
	QueriesReloadFailed(ctx context.Context, file string, err error)
}

// EventDiagnostics reports the handling of inbound HTTP events.
type EventDiagnostics interface {
	EventReceived(ctx context.Context)
	EventProcessed(ctx context.Context, elapsedMS int64)
	EventProcessingFailed(ctx context.Context, err error)
	ErrorGettingWeatherForecast(ctx context.Context, err error)
	QueryExecuted(ctx context.Context, name string, rows int, elapsedMS int64)
}

// LifecycleDiagnostics reports receiver start and stop.
type LifecycleDiagnostics interface {
	StartingReceiver(ctx context.Context)
	StartedReceiver(ctx context.Context, addr string)
	StoppedReceiver(ctx context.Context)
}

// NoopDiagnostics discards every event.
type NoopDiagnostics struct{}

func (NoopDiagnostics) RequestedQuery(context.Context, string)                {}
func (NoopDiagnostics) QueryFound(context.Context, string)                    {}
func (NoopDiagnostics) QueryNotFound(context.Context, string)                 {}
func (NoopDiagnostics) QueriesFileNameNotSet(context.Context)                 {}
func (NoopDiagnostics) QueriesFileNotFound(context.Context, string)           {}
func (NoopDiagnostics) QueryNotUnique(context.Context, string, string)        {}
func (NoopDiagnostics) CDataNotFoundForQuery(context.Context, string, string) {}
func (NoopDiagnostics) QueriesReloaded(context.Context, string, int)          {}
func (NoopDiagnostics) QueriesReloadFailed(context.Context, string, error)    {}
func (NoopDiagnostics) EventReceived(context.Context)                         {}
func (NoopDiagnostics) EventProcessed(context.Context, int64)                 {}
func (NoopDiagnostics) EventProcessingFailed(context.Context, error)          {}
func (NoopDiagnostics) ErrorGettingWeatherForecast(context.Context, error)    {}
func (NoopDiagnostics) QueryExecuted(context.Context, string, int, int64)     {}
func (NoopDiagnostics) StartingReceiver(context.Context)                      {}
func (NoopDiagnostics) StartedReceiver(context.Context, string)               {}
func (NoopDiagnostics) StoppedReceiver(context.Context)                       {}
