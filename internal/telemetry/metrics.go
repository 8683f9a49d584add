package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/telemetry-receiver"

// Metric names exposed to the telemetry backend.
const (
	MetricEventProcessingTime       = "telemetry_receiver_http_event_processing_time"
	MetricEventProcessedCount       = "telemetry_receiver_http_event_processed_count"
	MetricEventProcessingExceptions = "telemetry_receiver_http_event_processing_exceptions"
	MetricQueryDuration             = "telemetry_receiver_db_query_duration"
)

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	EventProcessingTime       metric.Int64Histogram
	EventProcessedCount       metric.Int64Counter
	EventProcessingExceptions metric.Int64Counter
	QueryDuration             metric.Int64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return NewInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return NewInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

// NewInstrumentsFromMeter creates the instruments on an explicit meter.
func NewInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	processingTime, _ := meter.Int64Histogram(MetricEventProcessingTime,
		metric.WithDescription("The elapsed time to process an http event on milliseconds."),
		metric.WithUnit("ms"),
	)
	processedCount, _ := meter.Int64Counter(MetricEventProcessedCount,
		metric.WithDescription("The number of http event count processed."),
	)
	exceptions, _ := meter.Int64Counter(MetricEventProcessingExceptions,
		metric.WithDescription("The number of exceptions processing http events."),
	)
	queryDuration, _ := meter.Int64Histogram(MetricQueryDuration,
		metric.WithDescription("Named query execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		EventProcessingTime:       processingTime,
		EventProcessedCount:       processedCount,
		EventProcessingExceptions: exceptions,
		QueryDuration:             queryDuration,
	}
}
