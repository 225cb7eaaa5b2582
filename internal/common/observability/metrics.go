package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	jobCounter         otelmetric.Int64Counter
	jobDuration        otelmetric.Float64Histogram
	evaluationDuration otelmetric.Float64Histogram
	recordsEvaluated   otelmetric.Int64Counter
}

// New registers an OpenTelemetry meter provider backed by the Prometheus
// exporter, so otel instruments appear on the same /metrics endpoint.
func New(serviceName string, log *zap.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", zap.Error(err))
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	evaluationDuration, _ := meter.Float64Histogram(
		"rules.evaluation.duration",
		otelmetric.WithDescription("Alert rule evaluation duration"),
		otelmetric.WithUnit("ms"),
	)

	recordsEvaluated, _ := meter.Int64Counter(
		"rules.records.evaluated",
		otelmetric.WithDescription("Records passed through the alert rules"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		jobCounter:         jobCounter,
		jobDuration:        jobDuration,
		evaluationDuration: evaluationDuration,
		recordsEvaluated:   recordsEvaluated,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// RecordEvaluation is called once per rule engine pass.
func (o *Observability) RecordEvaluation(ctx context.Context, records int, duration time.Duration) {
	if o == nil {
		return
	}
	if o.recordsEvaluated != nil {
		o.recordsEvaluated.Add(ctx, int64(records))
	}
	if o.evaluationDuration != nil {
		o.evaluationDuration.Record(ctx, float64(duration.Microseconds())/1000)
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
