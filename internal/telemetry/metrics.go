package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the authority and the reaper.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	validations metric.Int64Counter
	reaped      metric.Int64Counter
}

// NewMetrics creates the session instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	validations, err := meter.Int64Counter(
		"session.validations",
		metric.WithDescription("Session validation attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}
	reaped, err := meter.Int64Counter(
		"session.reaped",
		metric.WithDescription("Sessions deleted by the reaper, by pass"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{validations: validations, reaped: reaped}, nil
}

// RecordValidation counts one validation attempt with its outcome
// (ok, no_session, not_found, revoked, account_suspended, timed_out, error).
func (m *Metrics) RecordValidation(ctx context.Context, outcome string) {
	if m == nil || m.validations == nil {
		return
	}
	m.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordReaped counts sessions deleted by a reaper pass (expired, revoked, trimmed).
func (m *Metrics) RecordReaped(ctx context.Context, pass string, n int64) {
	if m == nil || m.reaped == nil || n == 0 {
		return
	}
	m.reaped.Add(ctx, n, metric.WithAttributes(attribute.String("pass", pass)))
}
