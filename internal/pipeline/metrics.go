package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/ingestd/internal/pipeline"

// Metrics holds pipeline processing metrics.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	documentsTotal metric.Int64Counter
	retriesTotal   metric.Int64Counter
	stageDuration  metric.Float64Histogram
	inFlight       metric.Int64UpDownCounter
}

// NewMetrics creates a new Metrics instance for the pipeline.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.documentsTotal, err = m.meter.Int64Counter(
		"ingestd.pipeline.documents_total",
		metric.WithDescription("Documents finished by outcome (completed, failed, cancelled, retrying)"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		m.logger.Warn("failed to create documents counter", zap.Error(err))
	}

	m.retriesTotal, err = m.meter.Int64Counter(
		"ingestd.pipeline.retries_total",
		metric.WithDescription("Retry attempts scheduled"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		m.logger.Warn("failed to create retries counter", zap.Error(err))
	}

	m.stageDuration, err = m.meter.Float64Histogram(
		"ingestd.pipeline.stage_duration_seconds",
		metric.WithDescription("Duration of pipeline stages in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0),
	)
	if err != nil {
		m.logger.Warn("failed to create stage duration histogram", zap.Error(err))
	}

	m.inFlight, err = m.meter.Int64UpDownCounter(
		"ingestd.pipeline.tasks_in_flight",
		metric.WithDescription("Document tasks currently executing"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		m.logger.Warn("failed to create in-flight counter", zap.Error(err))
	}
}

// RecordOutcome records a finished document task.
func (m *Metrics) RecordOutcome(ctx context.Context, outcome string) {
	if m.documentsTotal != nil {
		m.documentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordRetry records a scheduled retry attempt.
func (m *Metrics) RecordRetry(ctx context.Context) {
	if m.retriesTotal != nil {
		m.retriesTotal.Add(ctx, 1)
	}
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if m.stageDuration != nil {
		m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// TaskStarted increments the in-flight gauge.
func (m *Metrics) TaskStarted(ctx context.Context) {
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1)
	}
}

// TaskEnded decrements the in-flight gauge.
func (m *Metrics) TaskEnded(ctx context.Context) {
	if m.inFlight != nil {
		m.inFlight.Add(ctx, -1)
	}
}
