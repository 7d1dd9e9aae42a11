package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "intentgate"

// Metrics holds all IntentGate metric instruments.
type Metrics struct {
	Invocations        metric.Int64Counter
	Blocked            metric.Int64Counter
	Confirmations      metric.Int64Counter
	Escalations        metric.Int64Counter
	InvocationDuration metric.Float64Histogram
	JudgeScore         metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Invocations, err = meter.Int64Counter("intentgate.invocations",
		metric.WithDescription("Number of governed tool invocations"))
	if err != nil {
		return nil, err
	}

	m.Blocked, err = meter.Int64Counter("intentgate.invocations.blocked",
		metric.WithDescription("Number of invocations blocked by a rule"))
	if err != nil {
		return nil, err
	}

	m.Confirmations, err = meter.Int64Counter("intentgate.confirmations",
		metric.WithDescription("Number of confirmation requirements raised"))
	if err != nil {
		return nil, err
	}

	m.Escalations, err = meter.Int64Counter("intentgate.escalations",
		metric.WithDescription("Number of judge escalations raised"))
	if err != nil {
		return nil, err
	}

	m.InvocationDuration, err = meter.Float64Histogram("intentgate.invocation.duration_seconds",
		metric.WithDescription("Invocation duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.JudgeScore, err = meter.Float64Histogram("intentgate.judge.score",
		metric.WithDescription("Judge score per evaluated turn (0-10)"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordInvocation records one completed pipeline pass: the counter, the
// duration histogram, the blocked counter when a rule stopped it, and the
// confirmations counter when the invocation suspended on a human gate
// (one requirement is raised per suspended invocation).
func (m *Metrics) RecordInvocation(ctx context.Context, action, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	)
	m.Invocations.Add(ctx, 1, attrs)
	m.InvocationDuration.Record(ctx, elapsed.Seconds(), attrs)

	switch outcome {
	case "reject", "escalate":
		m.Blocked.Add(ctx, 1, attrs)
	case "pending":
		m.Confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

// RecordJudgeScore records one evaluated turn's score.
func (m *Metrics) RecordJudgeScore(ctx context.Context, score float64, passed bool) {
	m.JudgeScore.Record(ctx, score, metric.WithAttributes(attribute.Bool("passed", passed)))
}

// RecordEscalation counts one raised escalation and its delivery status.
func (m *Metrics) RecordEscalation(ctx context.Context, deliveryStatus string) {
	m.Escalations.Add(ctx, 1, metric.WithAttributes(attribute.String("delivery_status", deliveryStatus)))
}
