package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// GetWeatherForecastsQuery names the stored forecasts query in the queries file.
const GetWeatherForecastsQuery = "GET_WEATHER_FORECASTS"

// ForecastService assembles the forecast response: synthetic forecasts for the
// coming days decorated with a random address, followed by stored forecasts.
// Downstream failures are reported and degrade the response instead of failing it.
type ForecastService struct {
	addresses port.AddressProvider
	queries   port.NamedQueryExecutor
	diag      port.EventDiagnostics
	logger    *slog.Logger
	tracer    trace.Tracer

	now     func() time.Time
	newRand func() *rand.Rand
}

func NewForecastService(addresses port.AddressProvider, queries port.NamedQueryExecutor, diag port.EventDiagnostics, logger *slog.Logger, tracer trace.Tracer) *ForecastService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if diag == nil {
		diag = port.NoopDiagnostics{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ForecastService{
		addresses: addresses,
		queries:   queries,
		diag:      diag,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// GetForecasts always returns ForecastDays synthetic forecasts, plus whatever
// the stored forecasts query yields.
func (s *ForecastService) GetForecasts(ctx context.Context) []domain.Forecast {
	s.diag.EventReceived(ctx)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "ForecastService.GetForecasts")
	defer span.End()

	addr := s.address(ctx, span)
	forecasts := domain.GenerateForecasts(s.now(), addr, s.newRand())
	forecasts = append(forecasts, s.stored(ctx, span)...)

	span.SetAttributes(attribute.Int("forecast.count", len(forecasts)))
	s.diag.EventProcessed(ctx, time.Since(start).Milliseconds())
	return forecasts
}

func (s *ForecastService) address(ctx context.Context, span trace.Span) domain.Address {
	if s.addresses == nil {
		return domain.Address{}
	}
	addr, err := s.addresses.RandomAddress(ctx)
	if err != nil {
		span.RecordError(err)
		s.diag.EventProcessingFailed(ctx, fmt.Errorf("getting address: %w", err))
		return domain.Address{}
	}
	span.SetAttributes(attribute.String("forecast.city", addr.City))
	return addr
}

func (s *ForecastService) stored(ctx context.Context, span trace.Span) []domain.Forecast {
	if s.queries == nil {
		return nil
	}

	rows, err := s.queries.ExecuteNamed(ctx, GetWeatherForecastsQuery)
	var notFound *domain.QueryNotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound):
		// The registry already reported the missing query.
		return nil
	case errors.Is(err, ErrNoDatabase):
		s.logger.DebugContext(ctx, "skipping stored forecasts", slog.String("reason", err.Error()))
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.diag.ErrorGettingWeatherForecast(ctx, err)
		return nil
	}

	out := make([]domain.Forecast, 0, len(rows))
	for i, row := range rows {
		f, err := forecastFromRow(row)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping stored forecast row",
				slog.Int("row", i),
				slog.String("error.message", err.Error()),
			)
			continue
		}
		out = append(out, f)
	}
	return out
}

// forecastFromRow maps a GET_WEATHER_FORECASTS row. Required columns are date
// and temperature_c; city, address and summary are optional.
func forecastFromRow(row map[string]any) (domain.Forecast, error) {
	date, err := timeColumn(row, "date")
	if err != nil {
		return domain.Forecast{}, err
	}
	tempC, err := intColumn(row, "temperature_c")
	if err != nil {
		return domain.Forecast{}, err
	}

	f := domain.NewForecast(domain.Address{City: stringColumn(row, "city")}, date, tempC, stringColumn(row, "summary"))
	if addr := stringColumn(row, "address"); addr != "" {
		f.Address = addr
	}
	return f, nil
}

func stringColumn(row map[string]any, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intColumn(row map[string]any, col string) (int, error) {
	switch v := row[col].(type) {
	case int:
		return v, nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("column %s is missing", col)
	default:
		return 0, fmt.Errorf("column %s has unsupported type %T", col, v)
	}
}

func timeColumn(row map[string]any, col string) (time.Time, error) {
	switch v := row[col].(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("column %s: cannot parse %q as a date", col, v)
	case nil:
		return time.Time{}, fmt.Errorf("column %s is missing", col)
	default:
		return time.Time{}, fmt.Errorf("column %s has unsupported type %T", col, v)
	}
}
