package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	igotel "github.com/central73/intentgate/internal/adapter/otel"
	"github.com/central73/intentgate/internal/adapter/ws"
	"github.com/central73/intentgate/internal/domain/audit"
	"github.com/central73/intentgate/internal/domain/constitution"
	"github.com/central73/intentgate/internal/port/broadcast"
	"github.com/central73/intentgate/internal/port/messagequeue"
)

// Auditor is the outermost interceptor. It redacts sensitive argument keys,
// emits exactly one start and one end record per governed invocation, and
// captures wall-clock duration. The end record is emitted even when the
// inner stage fails; the failure itself propagates unchanged.
type Auditor struct {
	queue   messagequeue.Queue    // optional event sink; nil emits to logs only
	metrics *igotel.Metrics       // optional; nil disables instruments
	hub     broadcast.Broadcaster // optional; blocked decisions go to observers
}

// NewAuditor creates the audit interceptor. All dependencies may be nil.
func NewAuditor(queue messagequeue.Queue, metrics *igotel.Metrics, hub broadcast.Broadcaster) *Auditor {
	return &Auditor{queue: queue, metrics: metrics, hub: hub}
}

// Intercept implements Interceptor.
func (a *Auditor) Intercept(ctx context.Context, inv *constitution.Invocation, next Executor) (any, error) {
	sanitized := audit.Sanitize(inv.Arguments)

	a.emit(ctx, messagequeue.SubjectAuditStart, audit.Record{
		InvocationID: inv.ID,
		ActionName:   inv.ActionName,
		Phase:        audit.PhaseStart,
		Arguments:    sanitized,
		At:           time.Now(),
	})
	slog.Info("audit start",
		"invocation_id", inv.ID,
		"action", inv.ActionName,
		"args", sanitized,
	)

	ctx, span := igotel.StartInvocationSpan(ctx, inv.ID, inv.ActionName)
	defer span.End()

	start := time.Now()
	result, err := next(ctx, inv)
	elapsed := time.Since(start)

	outcome := outcomeLabel(err)
	rec := audit.Record{
		InvocationID: inv.ID,
		ActionName:   inv.ActionName,
		Phase:        audit.PhaseEnd,
		Arguments:    sanitized,
		Outcome:      outcome,
		Duration:     elapsed,
		At:           time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	a.emit(ctx, messagequeue.SubjectAuditEnd, rec)

	var block *constitution.BlockError
	if errors.As(err, &block) {
		a.emit(ctx, messagequeue.SubjectDecisionBlocked, rec)
		if a.hub != nil {
			a.hub.BroadcastEvent(ctx, ws.EventDecisionBlocked, ws.DecisionBlockedEvent{
				InvocationID: inv.ID,
				ActionName:   inv.ActionName,
				Outcome:      string(block.Outcome),
				Reason:       block.Reason,
			})
		}
	}

	slog.Info("audit end",
		"invocation_id", inv.ID,
		"action", inv.ActionName,
		"outcome", outcome,
		"duration", elapsed,
	)

	if a.metrics != nil {
		a.metrics.RecordInvocation(ctx, inv.ActionName, outcome, elapsed)
	}

	return result, err
}

// emit publishes an audit record to the event sink. Sink failures are
// logged and swallowed: audit emission must never alter the invocation's
// own outcome.
func (a *Auditor) emit(ctx context.Context, subject string, rec audit.Record) {
	if a.queue == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("audit record marshal failed", "error", err)
		return
	}
	if err := a.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("audit publish failed", "subject", subject, "error", err)
	}
}

// outcomeLabel maps an execution result to the audit outcome field.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var block *constitution.BlockError
	if errors.As(err, &block) {
		return string(block.Outcome)
	}
	var pending *PendingError
	if errors.As(err, &pending) {
		return "pending"
	}
	return "error"
}
