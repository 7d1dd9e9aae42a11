package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventConfirmationRequest  = "confirmation.request"
	EventConfirmationResolved = "confirmation.resolved"
	EventDecisionBlocked      = "decision.blocked"
	EventEscalationRaised     = "escalation.raised"
)

// ConfirmationRequestEvent is broadcast when a gated action suspends
// awaiting a human decision.
type ConfirmationRequestEvent struct {
	RequirementID string         `json:"requirement_id"`
	RunID         string         `json:"run_id"`
	ActionName    string         `json:"action_name"`
	Arguments     map[string]any `json:"arguments,omitempty"`
}

// ConfirmationResolvedEvent is broadcast when a requirement is decided.
type ConfirmationResolvedEvent struct {
	RequirementID string `json:"requirement_id"`
	RunID         string `json:"run_id"`
	ActionName    string `json:"action_name"`
	State         string `json:"state"`
}

// DecisionBlockedEvent is broadcast when a rule rejects or escalates an
// invocation before execution.
type DecisionBlockedEvent struct {
	InvocationID string `json:"invocation_id"`
	ActionName   string `json:"action_name"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
}

// EscalationRaisedEvent is broadcast when a turn fails its quality check.
type EscalationRaisedEvent struct {
	Score          float64 `json:"score"`
	Reason         string  `json:"reason"`
	DeliveryStatus string  `json:"delivery_status"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
