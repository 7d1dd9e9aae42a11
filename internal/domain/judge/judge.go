// Package judge defines the domain model for post-execution output scoring
// and the escalation events raised when a turn fails its quality check.
package judge

import "time"

// DefaultThreshold is the minimum passing score on the 0-10 scale.
const DefaultThreshold = 7

// EvaluationResult scores one completed turn's output against the
// configured criteria.
type EvaluationResult struct {
	Score  float64   `json:"score"`
	Passed bool      `json:"passed"`
	Reason string    `json:"reason"`
	Input  string    `json:"input"`
	Output string    `json:"output"`
	At     time.Time `json:"at"`
}

// DeliveryStatus records which escalation path fired.
type DeliveryStatus string

const (
	// DeliverySent means the configured escalation sink accepted the event.
	DeliverySent DeliveryStatus = "sent"
	// DeliveryFailed means the sink was unreachable and the local fallback
	// notification fired instead.
	DeliveryFailed DeliveryStatus = "failed"
	// DeliverySkipped means no escalation sink is configured; only the
	// local fallback fired.
	DeliverySkipped DeliveryStatus = "skipped"
)

// EscalationEvent is dispatched exactly once per failed evaluation.
type EscalationEvent struct {
	Result         EvaluationResult `json:"result"`
	DeliveryStatus DeliveryStatus   `json:"delivery_status"`
	At             time.Time        `json:"at"`
}
