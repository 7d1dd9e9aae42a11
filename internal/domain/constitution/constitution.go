// Package constitution defines the domain model for IntentGate's declarative
// governance policy. A constitution maps action names to ordered rule lists
// that decide whether a pending action invocation is approved, rejected, or
// escalated for human review.
package constitution

import "time"

// RuleAction is the outcome a rule prescribes when its condition matches.
type RuleAction string

const (
	ActionApprove  RuleAction = "approve"
	ActionReject   RuleAction = "reject"
	ActionEscalate RuleAction = "escalate"
)

// Rule is a single entry in an action's rule list. Rules are evaluated in
// order; the first matching rule governs the outcome.
type Rule struct {
	Condition string     `yaml:"condition" json:"condition"`
	Action    RuleAction `yaml:"action" json:"action"`
	Reason    string     `yaml:"reason" json:"reason"`
	Threshold *float64   `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// RuleSet maps an action name to its ordered rule list.
type RuleSet map[string][]Rule

// RulesFor returns the rule list for an action name. Unknown action names
// yield an empty list, which the engine resolves to an implicit approve.
func (rs RuleSet) RulesFor(actionName string) []Rule {
	return rs[actionName]
}

// Tier classifies the caller. Enterprise callers bypass blocking rules.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierEnterprise Tier = "enterprise"
)

// CallerContext carries caller attributes supplied per invocation.
// It is read-only to the engine.
type CallerContext struct {
	Tier       Tier           `json:"tier"`
	TenureDays int            `json:"tenure_days"`
	OrgGoal    string         `json:"org_goal,omitempty"`
	Session    map[string]any `json:"session,omitempty"`
}

// Invocation is one attempted action call, created once per attempt and
// never mutated after creation.
type Invocation struct {
	ID         string         `json:"id"`
	RunID      string         `json:"run_id,omitempty"`
	ActionName string         `json:"action_name"`
	Arguments  map[string]any `json:"arguments"`
	Context    CallerContext  `json:"context"`
}

// Outcome is the terminal result of the policy phase for one invocation.
type Outcome string

const (
	OutcomeApprove  Outcome = "approve"
	OutcomeReject   Outcome = "reject"
	OutcomeEscalate Outcome = "escalate"
)

// Decision is produced by the engine, exactly once per invocation.
// RuleIndex is -1 when no rule matched and the fail-open default applied.
type Decision struct {
	Outcome     Outcome   `json:"outcome"`
	MatchedRule *Rule     `json:"matched_rule,omitempty"`
	RuleIndex   int       `json:"rule_index"`
	At          time.Time `json:"at"`
}

// Blocking reports whether the decision prevents the action from executing.
func (d Decision) Blocking() bool {
	return d.Outcome != OutcomeApprove
}
