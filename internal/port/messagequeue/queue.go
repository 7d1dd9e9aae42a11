// Package messagequeue defines the message queue port (interface) used to
// emit audit and escalation events to external observers.
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects for governance events.
const (
	SubjectAuditStart       = "audit.start"       // one per governed invocation
	SubjectAuditEnd         = "audit.end"         // one per governed invocation
	SubjectDecisionBlocked  = "decisions.blocked" // reject/escalate outcomes
	SubjectEscalationRaised = "escalations.raised"
)
