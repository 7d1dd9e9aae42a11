package service

import (
	"context"
	"log/slog"

	igotel "github.com/central73/intentgate/internal/adapter/otel"
	"github.com/central73/intentgate/internal/domain/judge"
	"github.com/central73/intentgate/internal/port/notifier"
)

// NotificationService dispatches escalation notifications to all registered
// notifiers. Delivery is best-effort: a failed or absent sink degrades to a
// local log record, never to a raised error.
type NotificationService struct {
	notifiers []notifier.Notifier
}

// NewNotificationService creates a NotificationService with the given
// notifiers. A nil or empty list is valid; every delivery then reports
// DeliverySkipped.
func NewNotificationService(notifiers []notifier.Notifier) *NotificationService {
	return &NotificationService{notifiers: notifiers}
}

// Escalate sends the notification to every registered notifier and reports
// the overall delivery status: DeliverySent when at least one sink accepted
// it, DeliveryFailed when all sinks errored, DeliverySkipped when no sink
// is configured. On failure the full notification content is logged locally
// so the escalation is never silently lost.
func (s *NotificationService) Escalate(ctx context.Context, n notifier.Notification) judge.DeliveryStatus {
	if len(s.notifiers) == 0 {
		slog.Warn("no escalation sink configured, logging locally",
			"title", n.Title,
			"message", n.Message,
		)
		return judge.DeliverySkipped
	}

	delivered := false
	for _, provider := range s.notifiers {
		sendCtx, span := igotel.StartEscalationSpan(ctx, provider.Name())
		if err := provider.Send(sendCtx, n); err != nil {
			span.RecordError(err)
			span.End()
			slog.Warn("escalation send failed",
				"provider", provider.Name(),
				"title", n.Title,
				"error", err,
			)
			continue
		}
		span.End()
		slog.Debug("escalation sent", "provider", provider.Name(), "title", n.Title)
		delivered = true
	}
	if delivered {
		return judge.DeliverySent
	}

	slog.Error("escalation delivery failed on all sinks, logging locally",
		"title", n.Title,
		"message", n.Message,
		"fields", n.Fields,
	)
	return judge.DeliveryFailed
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}
