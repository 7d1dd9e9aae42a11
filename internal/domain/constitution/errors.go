package constitution

import "fmt"

// LoadError reports that the constitution document could not be read or
// parsed. It is fatal for the governed invocation: callers must fail closed
// rather than proceed without policy.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load constitution %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// BlockError surfaces a reject or escalate decision to the caller. It is an
// expected, recoverable outcome, not an engine failure; the underlying
// action must not execute. Reason carries the matched rule's text verbatim.
type BlockError struct {
	Outcome    Outcome
	ActionName string
	Reason     string
}

func (e *BlockError) Error() string {
	if e.Outcome == OutcomeEscalate {
		return fmt.Sprintf("%s requires human review: %s", e.ActionName, e.Reason)
	}
	return fmt.Sprintf("%s denied: %s", e.ActionName, e.Reason)
}
