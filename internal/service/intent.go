package service

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/central73/intentgate/internal/domain/constitution"
)

// defaultStrategies maps an organizational goal to a behavioural
// instruction suffix appended to the base intent.
var defaultStrategies = map[string]string{
	"retention": "\nPRIORITY: This quarter is retention-focused. " +
		"Be lenient with long-term users. Never deny a refund request " +
		"from users with >2 yr tenure without escalating first. " +
		"Offer loyalty discounts proactively.",
	"cost_reduction": "\nPRIORITY: Minimise refund approvals. " +
		"Offer store credit or service extensions as alternatives first. " +
		"Only approve cash refunds when the customer explicitly insists " +
		"after being presented with alternatives.",
	"growth": "\nPRIORITY: Maximise upsell opportunities. " +
		"Highlight premium features during every interaction. " +
		"When resolving an issue, mention how upgrading would have " +
		"prevented it.",
}

// IntentService assembles live behavioural instructions from the caller's
// session context: a static base intent, tier awareness, and a strategy
// suffix keyed by the organization's current goal. Shifting strategy is a
// context change, not a redeployment.
type IntentService struct {
	base       string
	strategies map[string]string
}

// NewIntentService creates an IntentService. overrides are merged on top
// of the built-in strategies and may add goals or replace their text.
func NewIntentService(base string, overrides map[string]string) *IntentService {
	if base == "" {
		base = "You are a support agent for Acme Corp."
	}
	strategies := maps.Clone(defaultStrategies)
	maps.Copy(strategies, overrides)
	return &IntentService{base: base, strategies: strategies}
}

// Instructions returns the tailored instruction text for one turn.
func (s *IntentService) Instructions(cctx constitution.CallerContext) string {
	tier := cctx.Tier
	if tier == "" {
		tier = constitution.TierStandard
	}

	instructions := s.base
	instructions += fmt.Sprintf("\n\nThe current customer's tier is: %s.", tier)

	if suffix, ok := s.strategies[cctx.OrgGoal]; ok && suffix != "" {
		instructions += suffix
		slog.Info("strategy injected", "org_goal", cctx.OrgGoal, "tier", tier)
	} else {
		slog.Info("no strategy override", "org_goal", cctx.OrgGoal, "tier", tier)
	}
	return instructions
}

// Strategies returns the known organizational goals.
func (s *IntentService) Strategies() []string {
	out := make([]string, 0, len(s.strategies))
	for goal := range s.strategies {
		out = append(out, goal)
	}
	return out
}
