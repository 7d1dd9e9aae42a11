package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/central73/intentgate/internal/domain/constitution"
)

// Action is a governed side-effecting operation registered by the calling
// system. The pipeline treats its arguments as opaque beyond the fields the
// constitution is configured to read.
type Action struct {
	Name                 string
	RequiresConfirmation bool
	Run                  func(ctx context.Context, args map[string]any) (any, error)
}

// GovernorService wires the governance pipeline around registered actions:
// an audit stage wraps a policy stage wraps the action itself, with the
// confirmation gate intervening before execution for gated actions.
type GovernorService struct {
	constitution  *ConstitutionService
	confirmations *ConfirmationService
	auditor       *Auditor
	extra         []Interceptor // caller-supplied stages, innermost

	mu      sync.RWMutex
	actions map[string]Action
}

// NewGovernorService creates a GovernorService. Caller-supplied
// interceptors are composed inside the audit and policy stages, never in
// place of them.
func NewGovernorService(
	constitutionSvc *ConstitutionService,
	confirmations *ConfirmationService,
	auditor *Auditor,
	extra ...Interceptor,
) *GovernorService {
	return &GovernorService{
		constitution:  constitutionSvc,
		confirmations: confirmations,
		auditor:       auditor,
		extra:         extra,
		actions:       make(map[string]Action),
	}
}

// RegisterAction makes an action available for governed invocation.
func (g *GovernorService) RegisterAction(a Action) error {
	if a.Name == "" {
		return fmt.Errorf("governor: action name is required")
	}
	if a.Run == nil {
		return fmt.Errorf("governor: action %q has no run function", a.Name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.actions[a.Name]; exists {
		return fmt.Errorf("governor: duplicate action %q", a.Name)
	}
	g.actions[a.Name] = a
	return nil
}

// Actions returns the names of all registered actions.
func (g *GovernorService) Actions() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.actions))
	for name := range g.actions {
		names = append(names, name)
	}
	return names
}

// Invoke executes one governed invocation through the full hook chain.
//
// Returns the action's result on approval; a *constitution.BlockError when
// policy rejected or escalated the call (the action never ran); a
// *PendingError when the action is confirmation-gated and now awaits a
// human decision; or the action's own error, propagated unchanged.
func (g *GovernorService) Invoke(ctx context.Context, inv constitution.Invocation) (any, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	g.mu.RLock()
	action, ok := g.actions[inv.ActionName]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("governor: unknown action %q", inv.ActionName)
	}

	terminal := g.terminalFor(action)

	stages := make([]Interceptor, 0, len(g.extra)+2)
	stages = append(stages, g.auditor, g.policyStage())
	stages = append(stages, g.extra...)

	exec := Chain(terminal, stages...)
	return exec(ctx, &inv)
}

// Evaluate runs only the policy phase for an invocation, without
// executing, auditing, or gating anything. Callers use it to preview the
// decision an invocation would receive.
func (g *GovernorService) Evaluate(ctx context.Context, inv constitution.Invocation) (constitution.Decision, error) {
	return g.constitution.Evaluate(ctx, inv)
}

// policyStage returns the constitution interceptor. A blocking decision is
// the only sanctioned short-circuit: the inner stage is not called and a
// *constitution.BlockError carries the rule's reason verbatim.
func (g *GovernorService) policyStage() Interceptor {
	return InterceptorFunc(func(ctx context.Context, inv *constitution.Invocation, next Executor) (any, error) {
		decision, err := g.constitution.Evaluate(ctx, *inv)
		if err != nil {
			return nil, err
		}
		if decision.Blocking() {
			reason := ""
			if decision.MatchedRule != nil {
				reason = decision.MatchedRule.Reason
			}
			return nil, &constitution.BlockError{
				Outcome:    decision.Outcome,
				ActionName: inv.ActionName,
				Reason:     reason,
			}
		}
		return next(ctx, inv)
	})
}

// terminalFor builds the innermost executor. Confirmation-gated actions do
// not run here: a pending requirement is registered and the workflow is
// handed back to the caller, which resumes it once a decision is recorded.
func (g *GovernorService) terminalFor(action Action) Executor {
	run := func(ctx context.Context, inv *constitution.Invocation) (any, error) {
		return action.Run(ctx, inv.Arguments)
	}

	if !action.RequiresConfirmation {
		return run
	}

	return func(ctx context.Context, inv *constitution.Invocation) (any, error) {
		req := g.confirmations.Require(ctx, *inv, run)
		return nil, &PendingError{Requirements: []*Requirement{req}}
	}
}
