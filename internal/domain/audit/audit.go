// Package audit defines the write-once audit records emitted for every
// governed invocation.
package audit

import (
	"strings"
	"time"
)

// RedactionMarker replaces sensitive argument values before any record is
// constructed. Redaction is irreversible.
const RedactionMarker = "***"

// Phase distinguishes the start and end record of one invocation.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
)

// Record is one audit entry. Exactly one start and one end record are
// emitted per governed invocation (or a single end record when the call
// was blocked pre-execution).
type Record struct {
	InvocationID string         `json:"invocation_id"`
	ActionName   string         `json:"action_name"`
	Phase        Phase          `json:"phase"`
	Arguments    map[string]any `json:"arguments"`
	Outcome      string         `json:"outcome,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty"`
	Error        string         `json:"error,omitempty"`
	At           time.Time      `json:"at"`
}

// Sanitize returns a copy of args with secret-class values replaced by the
// redaction marker. The input map is never mutated.
func Sanitize(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if IsSensitiveKey(k) {
			out[k] = RedactionMarker
			continue
		}
		out[k] = v
	}
	return out
}

// IsSensitiveKey reports whether an argument key names a credential-bearing
// field (password, token, or secret class).
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") ||
		strings.Contains(k, "token") ||
		strings.Contains(k, "secret")
}
