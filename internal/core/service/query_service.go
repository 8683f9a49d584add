package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var _ port.NamedQueryExecutor = (*QueryService)(nil)

// ErrNoDatabase is returned when a named query resolves but no database is configured.
var ErrNoDatabase = errors.New("no database configured")

// QueryService resolves named queries from the registry, validates them (domain)
// and hands them to the executor (infrastructure).
type QueryService struct {
	queries   port.QueryProvider
	validator port.StatementValidator
	executor  port.QueryExecutor
	auditor   port.QueryAuditor
	diag      port.EventDiagnostics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewQueryService builds a QueryService. A nil executor means no database is
// configured; lookups still run but execution returns ErrNoDatabase.
func NewQueryService(queries port.QueryProvider, validator port.StatementValidator, executor port.QueryExecutor, auditor port.QueryAuditor, diag port.EventDiagnostics, logger *slog.Logger, tracer trace.Tracer) *QueryService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if diag == nil {
		diag = port.NoopDiagnostics{}
	}
	if auditor == nil {
		auditor = discardAuditor{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QueryService{
		queries:   queries,
		validator: validator,
		executor:  executor,
		auditor:   auditor,
		diag:      diag,
		logger:    logger,
		tracer:    tracer,
	}
}

// ExecuteNamed looks up name, validates its SQL and runs it. An unknown name
// yields a *domain.QueryNotFoundError; the registry has already reported it.
func (s *QueryService) ExecuteNamed(ctx context.Context, name string) ([]map[string]any, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.ExecuteNamed",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.query.name", name),
		),
	)
	defer span.End()

	sql, ok := s.queries.GetQuery(ctx, name)
	if !ok {
		err := &domain.QueryNotFoundError{Name: name}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("db.statement", sql))

	if err := s.validator.Validate(sql); err != nil {
		s.logger.WarnContext(ctx, "named query rejected",
			slog.String("query.name", name),
			slog.String("db.statement", sql),
			slog.String("error.type", "validation_error"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("validating query %s: %w", name, err)
	}

	if s.executor == nil {
		span.SetStatus(codes.Error, ErrNoDatabase.Error())
		return nil, ErrNoDatabase
	}

	start := time.Now()
	results, err := s.executor.Execute(ctx, sql)
	durationMS := time.Since(start).Milliseconds()

	s.auditor.Record(ctx, port.AuditEntry{
		Query:        name,
		SQL:          sql,
		RowsReturned: len(results),
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("executing query %s: %w", name, err)
	}

	s.diag.QueryExecuted(ctx, name, len(results), durationMS)
	span.SetAttributes(attribute.Int("db.response.rows", len(results)))

	return results, nil
}

type discardAuditor struct{}

func (discardAuditor) Record(context.Context, port.AuditEntry) {}
func (discardAuditor) Close() error                            { return nil }
