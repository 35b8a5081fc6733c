package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelAPI forwards every report to an inner API and additionally records broken and warning
// reports as counters and ReportCount values as a gauge, all keyed by report id.
type OtelAPI struct {
	inner   API
	reports metric.Int64Counter
	counts  metric.Int64Gauge
}

func NewOtelAPI(inner API) (OtelAPI, error) {
	meter := otel.Meter("campusdual.telemetry")
	reports, err := meter.Int64Counter(
		"reports",
		metric.WithDescription("broken and warning reports by id"),
	)
	if err != nil {
		return OtelAPI{}, err
	}
	counts, err := meter.Int64Gauge(
		"report_count",
		metric.WithDescription("latest value passed to ReportCount by id"),
	)
	if err != nil {
		return OtelAPI{}, err
	}
	return OtelAPI{inner: inner, reports: reports, counts: counts}, nil
}

func (o OtelAPI) ReportBroken(id string, params ...any) {
	o.reports.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("id", id),
		attribute.String("kind", "broken"),
	))
	o.inner.ReportBroken(id, params...)
}

func (o OtelAPI) ReportWarning(id string, params ...any) {
	o.reports.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("id", id),
		attribute.String("kind", "warning"),
	))
	o.inner.ReportWarning(id, params...)
}

func (o OtelAPI) ReportDebug(msg string, params ...any) {
	o.inner.ReportDebug(msg, params...)
}

func (o OtelAPI) ReportCount(id string, count int64) {
	o.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportCount(id, count)
}
