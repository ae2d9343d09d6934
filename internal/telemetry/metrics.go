// Package telemetry provides OpenTelemetry metric instruments for the
// decision engine and its host.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for all instruments.
const MeterName = "github.com/talgya/mini-mind"

// Metrics holds the instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	populationUpdates metric.Int64Counter
	updateDuration    metric.Float64Histogram
	decisions         metric.Int64Counter
	confidence        metric.Float64Histogram
	transitions       metric.Int64Counter
	globalMemory      metric.Int64Gauge
}

// New creates instruments on the global meter provider.
func New() (*Metrics, error) {
	return NewWithProvider(otel.GetMeterProvider())
}

// NewWithProvider creates instruments on the given provider.
func NewWithProvider(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(MeterName)
	m := &Metrics{}
	var err error

	m.populationUpdates, err = meter.Int64Counter(
		"engine.population.updates",
		metric.WithDescription("Throttled whole-population updates fired"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	m.updateDuration, err = meter.Float64Histogram(
		"engine.population.update.duration",
		metric.WithDescription("Wall time spent in one population update"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.decisions, err = meter.Int64Counter(
		"agent.decisions",
		metric.WithDescription("New decisions produced, by action kind"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	m.confidence, err = meter.Float64Histogram(
		"agent.decision.confidence",
		metric.WithDescription("Winning utility of new decisions"),
	)
	if err != nil {
		return nil, err
	}

	m.transitions, err = meter.Int64Counter(
		"agent.state.transitions",
		metric.WithDescription("Behavioral state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	m.globalMemory, err = meter.Int64Gauge(
		"engine.memory.global.entries",
		metric.WithDescription("Live entries in the shared memory store"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordUpdate records one fired population update.
func (m *Metrics) RecordUpdate(ctx context.Context, agents int, seconds float64, globalEntries int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("agents", agents))
	m.populationUpdates.Add(ctx, 1, attrs)
	m.updateDuration.Record(ctx, seconds, attrs)
	m.globalMemory.Record(ctx, int64(globalEntries))
}

// RecordDecision records a newly produced decision.
func (m *Metrics) RecordDecision(ctx context.Context, kind string, confidence float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("action", kind))
	m.decisions.Add(ctx, 1, attrs)
	m.confidence.Record(ctx, confidence, attrs)
}

// RecordTransition records a state change.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
