package constitution

import "fmt"

// applyDefaults fills zero-valued rule fields: an omitted condition matches
// everything and an omitted action approves.
func (r *Rule) applyDefaults() {
	if r.Condition == "" {
		r.Condition = "any"
	}
	if r.Action == "" {
		r.Action = ActionApprove
	}
}

// Validate checks that a Rule is well-formed.
func (r *Rule) Validate() error {
	if !isValidAction(r.Action) {
		return fmt.Errorf("invalid action %q", r.Action)
	}
	if r.Threshold != nil && *r.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0")
	}
	return nil
}

func isValidAction(a RuleAction) bool {
	switch a {
	case ActionApprove, ActionReject, ActionEscalate:
		return true
	}
	return false
}
