package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	ighttp "github.com/central73/intentgate/internal/adapter/http"
	"github.com/central73/intentgate/internal/domain/constitution"
	"github.com/central73/intentgate/internal/port/scorer"
	"github.com/central73/intentgate/internal/service"
)

const testConstitution = `
stripe_refund:
  - condition: high_value
    action: reject
    reason: "Refunds of $100 or more require a human"
  - condition: any
    action: approve
    reason: "Small refunds are fine"
send_email:
  - condition: any
    action: approve
    reason: "Always allowed"
`

func writeTestConstitution(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "constitution.yaml")
	if err := os.WriteFile(path, []byte(testConstitution), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// newTestRouter wires a full pipeline around an in-memory action set.
func newTestRouter(t *testing.T) (chi.Router, *service.ConfirmationService) {
	t.Helper()
	return newTestRouterWith(t, 0, nil)
}

// newTestRouterWith is newTestRouter with a confirmation wait timeout and
// an optional judge in place of the disabled default.
func newTestRouterWith(t *testing.T, waitTimeout time.Duration, judge *service.JudgeService) (chi.Router, *service.ConfirmationService) {
	t.Helper()

	store := constitution.NewStore(writeTestConstitution(t))
	constitutionSvc := service.NewConstitutionService(store)
	confirmations := service.NewConfirmationService(nil, waitTimeout)
	auditor := service.NewAuditor(nil, nil, nil)
	governor := service.NewGovernorService(constitutionSvc, confirmations, auditor)

	mustRegister := func(a service.Action) {
		t.Helper()
		if err := governor.RegisterAction(a); err != nil {
			t.Fatal(err)
		}
	}
	mustRegister(service.Action{
		Name: "stripe_refund",
		Run: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"refunded": args["amount"]}, nil
		},
	})
	mustRegister(service.Action{
		Name:                 "send_email",
		RequiresConfirmation: true,
		Run: func(_ context.Context, _ map[string]any) (any, error) {
			return "email sent", nil
		},
	})

	if judge == nil {
		judge = service.NewJudgeService(nil, nil, nil, nil, nil, "", 7, false)
	}
	intent := service.NewIntentService("", nil)

	r := chi.NewRouter()
	ighttp.MountRoutes(r, ighttp.NewHandlers(governor, confirmations, judge, intent, store))
	return r, confirmations
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInvokeApproved(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/invocations", map[string]any{
		"run_id":    "run-1",
		"action":    "stripe_refund",
		"arguments": map[string]any{"amount": 50},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "completed" {
		t.Fatalf("expected completed, got %v", resp["status"])
	}
}

func TestEvaluateDecisionDryRun(t *testing.T) {
	router, confirmations := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/decisions", map[string]any{
		"action":    "stripe_refund",
		"arguments": map[string]any{"amount": 500},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var decision constitution.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatal(err)
	}
	if decision.Outcome != constitution.OutcomeReject {
		t.Fatalf("expected reject, got %v", decision.Outcome)
	}
	if decision.MatchedRule == nil || decision.MatchedRule.Reason != "Refunds of $100 or more require a human" {
		t.Fatalf("unexpected matched rule: %+v", decision.MatchedRule)
	}

	// A preview must not register a pending requirement or run anything.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/decisions", map[string]any{
		"action": "send_email",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if pending := confirmations.PendingAll(); len(pending) != 0 {
		t.Fatalf("dry run must not create requirements, got %d", len(pending))
	}
}

func TestInvokeBlocked(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/invocations", map[string]any{
		"run_id":    "run-1",
		"action":    "stripe_refund",
		"arguments": map[string]any{"amount": 500},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["outcome"] != "reject" {
		t.Fatalf("expected reject outcome, got %v", resp["outcome"])
	}
	if resp["reason"] != "Refunds of $100 or more require a human" {
		t.Fatalf("unexpected reason: %v", resp["reason"])
	}
}

func TestInvokeUnknownAction(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/invocations", map[string]any{
		"action": "delete_database",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestConfirmationFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	// Gated action suspends.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/invocations", map[string]any{
		"run_id":    "run-2",
		"action":    "send_email",
		"arguments": map[string]any{"to": "user@example.com"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var pending struct {
		Requirements []struct {
			ID string `json:"id"`
		} `json:"requirements"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}
	if len(pending.Requirements) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(pending.Requirements))
	}
	reqID := pending.Requirements[0].ID

	// Resume before resolution conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/runs/run-2/resume", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before resolution, got %d", rec.Code)
	}

	// Approve.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/confirmations/"+reqID+"/resolve", map[string]any{"approve": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Double resolution conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/confirmations/"+reqID+"/resolve", map[string]any{"approve": false})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double resolve, got %d", rec.Code)
	}

	// Resume executes the approved action.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/runs/run-2/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resumed struct {
		Results []struct {
			Approved bool `json:"approved"`
			Output   any  `json:"output"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resumed); err != nil {
		t.Fatal(err)
	}
	if len(resumed.Results) != 1 || !resumed.Results[0].Approved {
		t.Fatalf("expected 1 approved result, got %+v", resumed.Results)
	}
	if resumed.Results[0].Output != "email sent" {
		t.Fatalf("expected action output, got %v", resumed.Results[0].Output)
	}
}

func TestResolveUnknownRequirement(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/confirmations/nope/resolve", map[string]any{"approve": true})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListActions(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/actions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Actions []string `json:"actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", resp.Actions)
	}
}

func TestGetIntent(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/intent", map[string]any{
		"context": map[string]any{"tier": "enterprise", "org_goal": "retention"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Instructions == "" {
		t.Fatal("expected non-empty instructions")
	}
}

func TestGetConstitution(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/constitution", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rs map[string][]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rs); err != nil {
		t.Fatal(err)
	}
	if len(rs["stripe_refund"]) != 2 {
		t.Fatalf("expected 2 stripe_refund rules, got %d", len(rs["stripe_refund"]))
	}
}

func TestInvokeWaitExecutesAfterApproval(t *testing.T) {
	router, confirmations := newTestRouterWith(t, 2*time.Second, nil)

	// Approve from the side once the gate has suspended the invocation.
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			for _, req := range confirmations.PendingAll() {
				_ = confirmations.Resolve(context.Background(), req.ID, true)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/invocations", map[string]any{
		"run_id":    "run-wait",
		"action":    "send_email",
		"arguments": map[string]any{"to": "user@example.com"},
		"wait":      true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			Approved bool `json:"approved"`
			Output   any  `json:"output"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].Approved {
		t.Fatalf("expected 1 approved result, got %+v", resp.Results)
	}
	if resp.Results[0].Output != "email sent" {
		t.Fatalf("expected action output, got %v", resp.Results[0].Output)
	}
	if pending := confirmations.PendingAll(); len(pending) != 0 {
		t.Fatalf("expected no pending requirements after resume, got %d", len(pending))
	}
}

func TestInvokeWaitTimeoutRejects(t *testing.T) {
	router, _ := newTestRouter(t) // zero wait timeout, the gate rejects at once

	rec := doJSON(t, router, http.MethodPost, "/api/v1/invocations", map[string]any{
		"run_id": "run-wait-timeout",
		"action": "send_email",
		"wait":   true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			Approved bool `json:"approved"`
			Output   any  `json:"output"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Approved {
		t.Fatalf("expected 1 rejected result, got %+v", resp.Results)
	}
	if resp.Results[0].Output != nil {
		t.Fatalf("rejected requirement must not execute, got output %v", resp.Results[0].Output)
	}
}

type staticScorer struct {
	score scorer.Score
}

func (s staticScorer) ScoreTurn(context.Context, string, string, string) (scorer.Score, error) {
	return s.score, nil
}

func TestEvaluateBackgroundAccepted(t *testing.T) {
	criteria := filepath.Join(t.TempDir(), "criteria.txt")
	if err := os.WriteFile(criteria, []byte("1. Stay on brand."), 0o600); err != nil {
		t.Fatal(err)
	}
	judge := service.NewJudgeService(staticScorer{score: scorer.Score{Value: 9}}, nil, nil, nil, nil, criteria, 7, true)
	defer judge.Close()
	router, _ := newTestRouterWith(t, 0, judge)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/evaluations", map[string]any{
		"input":  "refund please",
		"output": "Of course!",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 in background mode, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "scheduled" {
		t.Fatalf("expected scheduled status, got %v", resp["status"])
	}
}

func TestEvaluateDisabled(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/evaluations", map[string]any{
		"input":  "refund please",
		"output": "Of course!",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without scorer, got %d", rec.Code)
	}
}
