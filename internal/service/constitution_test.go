package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/central73/intentgate/internal/domain/constitution"
)

func writeConstitution(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "constitution.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newConstitutionService(t *testing.T, doc string) *ConstitutionService {
	t.Helper()
	return NewConstitutionService(constitution.NewStore(writeConstitution(t, doc)))
}

const refundConstitution = `
stripe_refund:
  - condition: high_value
    action: reject
    reason: "Refunds of $100 or more require a human"
  - condition: any
    action: approve
    reason: "Small refunds are fine"
`

func TestEvaluateHighValueReject(t *testing.T) {
	svc := newConstitutionService(t, refundConstitution)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{
		ActionName: "stripe_refund",
		Arguments:  map[string]any{"amount": 250.0},
		Context:    constitution.CallerContext{Tier: constitution.TierStandard},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeReject {
		t.Fatalf("expected reject, got %q", d.Outcome)
	}
	if d.RuleIndex != 0 {
		t.Fatalf("expected rule index 0, got %d", d.RuleIndex)
	}
	if d.MatchedRule.Reason != "Refunds of $100 or more require a human" {
		t.Fatalf("unexpected reason: %q", d.MatchedRule.Reason)
	}
}

func TestEvaluateSmallAmountFallsThrough(t *testing.T) {
	svc := newConstitutionService(t, refundConstitution)

	// 50 does not satisfy high_value, so the any/approve rule matches.
	d, err := svc.Evaluate(context.Background(), constitution.Invocation{
		ActionName: "stripe_refund",
		Arguments:  map[string]any{"amount": 50.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve, got %q", d.Outcome)
	}
	if d.RuleIndex != 1 {
		t.Fatalf("expected rule index 1, got %d", d.RuleIndex)
	}
}

func TestEvaluateBoundaryAmount(t *testing.T) {
	svc := newConstitutionService(t, refundConstitution)

	// Exactly 100 satisfies high_value (inclusive threshold).
	d, err := svc.Evaluate(context.Background(), constitution.Invocation{
		ActionName: "stripe_refund",
		Arguments:  map[string]any{"amount": 100.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeReject {
		t.Fatalf("expected reject at threshold, got %q", d.Outcome)
	}
}

func TestEvaluateEnterpriseBypassesBlockingRules(t *testing.T) {
	svc := newConstitutionService(t, refundConstitution)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{
		ActionName: "stripe_refund",
		Arguments:  map[string]any{"amount": 5000.0},
		Context:    constitution.CallerContext{Tier: constitution.TierEnterprise},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve for enterprise, got %q", d.Outcome)
	}
	// The reject was skipped; the any/approve rule matched.
	if d.RuleIndex != 1 {
		t.Fatalf("expected rule index 1, got %d", d.RuleIndex)
	}
}

func TestEvaluateEnterpriseBypassesEscalate(t *testing.T) {
	svc := newConstitutionService(t, `
cancel_subscription:
  - condition: high_tenure
    action: escalate
    reason: "Long-tenure cancellations need review"
`)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{
		ActionName: "cancel_subscription",
		Context: constitution.CallerContext{
			Tier:       constitution.TierEnterprise,
			TenureDays: 1000,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve for enterprise, got %q", d.Outcome)
	}
}

func TestEvaluateEscalateForStandard(t *testing.T) {
	svc := newConstitutionService(t, `
cancel_subscription:
  - condition: high_tenure
    action: escalate
    reason: "Long-tenure cancellations need review"
`)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{
		ActionName: "cancel_subscription",
		Context:    constitution.CallerContext{TenureDays: 1000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeEscalate {
		t.Fatalf("expected escalate, got %q", d.Outcome)
	}
}

func TestEvaluateFirstApproveWins(t *testing.T) {
	svc := newConstitutionService(t, `
send_email:
  - condition: any
    action: approve
    reason: "first"
  - condition: any
    action: reject
    reason: "never reached"
`)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{ActionName: "send_email"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve, got %q", d.Outcome)
	}
	if d.RuleIndex != 0 {
		t.Fatalf("expected first rule to win, got index %d", d.RuleIndex)
	}
}

func TestEvaluateUnknownActionApproves(t *testing.T) {
	svc := newConstitutionService(t, refundConstitution)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{ActionName: "unlisted_action"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve for unlisted action, got %q", d.Outcome)
	}
	if d.RuleIndex != -1 {
		t.Fatalf("expected no matched rule, got index %d", d.RuleIndex)
	}
	if d.MatchedRule != nil {
		t.Fatal("expected nil matched rule")
	}
}

func TestEvaluateUnknownConditionNeverMatches(t *testing.T) {
	svc := newConstitutionService(t, `
stripe_refund:
  - condition: full_moon
    action: reject
    reason: "astrology"
  - condition: any
    action: approve
    reason: "fallback"
`)

	d, err := svc.Evaluate(context.Background(), constitution.Invocation{ActionName: "stripe_refund"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve, got %q", d.Outcome)
	}
	if d.RuleIndex != 1 {
		t.Fatalf("expected fallback rule, got index %d", d.RuleIndex)
	}
}

func TestEvaluateMissingFileFails(t *testing.T) {
	svc := NewConstitutionService(constitution.NewStore(filepath.Join(t.TempDir(), "absent.yaml")))

	_, err := svc.Evaluate(context.Background(), constitution.Invocation{ActionName: "stripe_refund"})
	if err == nil {
		t.Fatal("expected load error")
	}
	var loadErr *constitution.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
}

func TestEvaluateCustomThreshold(t *testing.T) {
	svc := newConstitutionService(t, `
stripe_refund:
  - condition: high_value
    action: reject
    reason: "over custom limit"
    threshold: 500
  - condition: any
    action: approve
    reason: "ok"
`)
	ctx := context.Background()

	d, err := svc.Evaluate(ctx, constitution.Invocation{
		ActionName: "stripe_refund",
		Arguments:  map[string]any{"amount": 250.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeApprove {
		t.Fatalf("expected approve below custom threshold, got %q", d.Outcome)
	}

	d, err = svc.Evaluate(ctx, constitution.Invocation{
		ActionName: "stripe_refund",
		Arguments:  map[string]any{"amount": 750.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != constitution.OutcomeReject {
		t.Fatalf("expected reject above custom threshold, got %q", d.Outcome)
	}
}
