// Package scorer defines the port for the external model that scores a
// completed turn against qualitative criteria. The pipeline owns only the
// threshold and escalation decision around this call.
package scorer

import "context"

// Score is what the external evaluator returns for one turn.
type Score struct {
	Value  float64 `json:"value"` // 0-10 scale
	Reason string  `json:"reason"`
}

// Scorer is the port interface for the delegated scoring call.
type Scorer interface {
	// ScoreTurn evaluates output against the criteria text, in the context
	// of the input that produced it.
	ScoreTurn(ctx context.Context, criteria, input, output string) (Score, error)
}
