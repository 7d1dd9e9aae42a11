// Package service contains application services.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/central73/intentgate/internal/domain/constitution"
)

// ConstitutionService decides approve/reject/escalate for a single pending
// action invocation. The constitution is loaded fresh from its store on
// every evaluation, so policy edits take effect without a restart.
type ConstitutionService struct {
	store *constitution.Store
}

// NewConstitutionService creates a ConstitutionService backed by the given
// rule store.
func NewConstitutionService(store *constitution.Store) *ConstitutionService {
	return &ConstitutionService{store: store}
}

// Evaluate produces exactly one Decision for the invocation. The only
// error it returns is a *constitution.LoadError, which is fatal for the
// governed action; a reject or escalate outcome is a normal Decision.
//
// Rules are evaluated in document order, first match wins. An action name
// with no rules, or no matching rule, resolves to approve: the pipeline is
// deliberately fail-open for unconfigured actions (see DESIGN.md).
// Enterprise-tier callers bypass reject and escalate rules; the match is
// logged but treated as non-blocking.
func (s *ConstitutionService) Evaluate(ctx context.Context, inv constitution.Invocation) (constitution.Decision, error) {
	rs, err := s.store.Load(ctx)
	if err != nil {
		return constitution.Decision{}, err
	}

	tier := inv.Context.Tier
	if tier == "" {
		tier = constitution.TierStandard
	}

	rules := rs.RulesFor(inv.ActionName)
	for i := range rules {
		rule := &rules[i]
		if !constitution.EvaluateCondition(rule.Condition, inv.Context, inv.Arguments, rule.Threshold) {
			continue
		}

		switch rule.Action {
		case constitution.ActionReject, constitution.ActionEscalate:
			if tier == constitution.TierEnterprise {
				slog.Info("constitution rule bypassed by tier",
					"action", inv.ActionName,
					"rule_action", rule.Action,
					"rule_index", i,
					"reason", rule.Reason,
					"tier", tier,
				)
				continue
			}
			outcome := constitution.OutcomeReject
			if rule.Action == constitution.ActionEscalate {
				outcome = constitution.OutcomeEscalate
			}
			slog.Warn("constitution blocked invocation",
				"action", inv.ActionName,
				"outcome", outcome,
				"rule_index", i,
				"reason", rule.Reason,
				"tier", tier,
			)
			return constitution.Decision{
				Outcome:     outcome,
				MatchedRule: rule,
				RuleIndex:   i,
				At:          time.Now(),
			}, nil

		case constitution.ActionApprove:
			// First matching approve wins; later rules are not considered.
			slog.Info("constitution approved invocation",
				"action", inv.ActionName,
				"rule_index", i,
				"reason", rule.Reason,
			)
			return constitution.Decision{
				Outcome:     constitution.OutcomeApprove,
				MatchedRule: rule,
				RuleIndex:   i,
				At:          time.Now(),
			}, nil
		}
	}

	return constitution.Decision{
		Outcome:   constitution.OutcomeApprove,
		RuleIndex: -1,
		At:        time.Now(),
	}, nil
}
