// Package http implements the REST adapter for the governance pipeline.
package http

import (
	"errors"
	"net/http"

	"github.com/central73/intentgate/internal/domain/constitution"
	"github.com/central73/intentgate/internal/service"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	governor      *service.GovernorService
	confirmations *service.ConfirmationService
	judge         *service.JudgeService
	intent        *service.IntentService
	store         *constitution.Store
}

// NewHandlers creates the handler set.
func NewHandlers(
	governor *service.GovernorService,
	confirmations *service.ConfirmationService,
	judge *service.JudgeService,
	intent *service.IntentService,
	store *constitution.Store,
) *Handlers {
	return &Handlers{
		governor:      governor,
		confirmations: confirmations,
		judge:         judge,
		intent:        intent,
		store:         store,
	}
}

// ---------------------------------------------------------------------------
// Invocations
// ---------------------------------------------------------------------------

type invokeRequest struct {
	RunID     string                     `json:"run_id"`
	Action    string                     `json:"action"`
	Arguments map[string]any             `json:"arguments"`
	Context   constitution.CallerContext `json:"context"`

	// Wait blocks the call on the confirmation gate instead of returning
	// the pending requirements immediately.
	Wait bool `json:"wait"`
}

type invokeResponse struct {
	InvocationID string `json:"invocation_id"`
	Status       string `json:"status"` // "completed", "pending", "blocked"
	Result       any    `json:"result,omitempty"`

	// Blocked invocations.
	Outcome string `json:"outcome,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// Pending invocations.
	Requirements []service.Requirement `json:"requirements,omitempty"`
}

// Invoke runs one action through the governance pipeline.
func (h *Handlers) Invoke(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[invokeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Action, "action") {
		return
	}

	inv := constitution.Invocation{
		RunID:      req.RunID,
		ActionName: req.Action,
		Arguments:  req.Arguments,
		Context:    req.Context,
	}

	result, err := h.governor.Invoke(r.Context(), inv)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, invokeResponse{
			InvocationID: inv.ID,
			Status:       "completed",
			Result:       result,
		})

	default:
		var blockErr *constitution.BlockError
		var pendingErr *service.PendingError
		var loadErr *constitution.LoadError

		switch {
		case errors.As(err, &blockErr):
			writeJSON(w, http.StatusForbidden, invokeResponse{
				InvocationID: inv.ID,
				Status:       "blocked",
				Outcome:      string(blockErr.Outcome),
				Reason:       blockErr.Reason,
			})
		case errors.As(err, &pendingErr):
			if req.Wait {
				h.waitAndResume(w, r, inv, pendingErr)
				return
			}
			reqs := make([]service.Requirement, 0, len(pendingErr.Requirements))
			for _, pr := range pendingErr.Requirements {
				reqs = append(reqs, *pr)
			}
			writeJSON(w, http.StatusAccepted, invokeResponse{
				InvocationID: inv.ID,
				Status:       "pending",
				Requirements: reqs,
			})
		case errors.As(err, &loadErr):
			writeError(w, http.StatusServiceUnavailable, "constitution unavailable: "+loadErr.Error())
		default:
			writeInternalError(w, err)
		}
	}
}

// waitAndResume blocks until every requirement raised by the invocation is
// decided, then resumes the run and reports the execution results. A wait
// that times out or loses its client rejects its requirement, so the gate
// still fails closed.
func (h *Handlers) waitAndResume(w http.ResponseWriter, r *http.Request, inv constitution.Invocation, pending *service.PendingError) {
	for _, pr := range pending.Requirements {
		h.confirmations.WaitDecision(r.Context(), pr.ID)
	}

	results, err := h.confirmations.Resume(r.Context(), inv.RunID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"invocation_id": inv.ID,
			"run_id":        inv.RunID,
			"results":       confirmationResultsJSON(results),
		})
	case errors.Is(err, service.ErrStillPending):
		// Another invocation of this run still holds an undecided
		// requirement.
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternalError(w, err)
	}
}

// EvaluateDecision previews the policy decision for an invocation without
// executing, auditing, or gating it.
func (h *Handlers) EvaluateDecision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[invokeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Action, "action") {
		return
	}

	decision, err := h.governor.Evaluate(r.Context(), constitution.Invocation{
		RunID:      req.RunID,
		ActionName: req.Action,
		Arguments:  req.Arguments,
		Context:    req.Context,
	})
	if err != nil {
		var loadErr *constitution.LoadError
		if errors.As(err, &loadErr) {
			writeError(w, http.StatusServiceUnavailable, "constitution unavailable: "+loadErr.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// ListActions returns the names of all registered actions.
func (h *Handlers) ListActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": h.governor.Actions()})
}

// ---------------------------------------------------------------------------
// Confirmations
// ---------------------------------------------------------------------------

type resolveRequest struct {
	Approve bool `json:"approve"`
}

// ListConfirmations returns all unresolved requirements.
func (h *Handlers) ListConfirmations(w http.ResponseWriter, _ *http.Request) {
	reqs := h.confirmations.PendingAll()
	if reqs == nil {
		reqs = []service.Requirement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requirements": reqs})
}

// ListRunConfirmations returns a run's unresolved requirements.
func (h *Handlers) ListRunConfirmations(w http.ResponseWriter, r *http.Request) {
	runID := urlParam(r, "id")
	reqs := h.confirmations.Pending(runID)
	if reqs == nil {
		reqs = []service.Requirement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requirements": reqs})
}

// ResolveConfirmation records a human decision for one requirement.
func (h *Handlers) ResolveConfirmation(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[resolveRequest](w, r)
	if !ok {
		return
	}

	err := h.confirmations.Resolve(r.Context(), id, req.Approve)
	switch {
	case err == nil:
		state := service.StateRejected
		if req.Approve {
			state = service.StateApproved
		}
		writeJSON(w, http.StatusOK, map[string]any{"requirement_id": id, "state": state})
	case errors.Is(err, service.ErrUnknownRequirement):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternalError(w, err)
	}
}

// ResumeRun executes a run's approved requirements once all are decided.
func (h *Handlers) ResumeRun(w http.ResponseWriter, r *http.Request) {
	runID := urlParam(r, "id")

	results, err := h.confirmations.Resume(r.Context(), runID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "results": confirmationResultsJSON(results)})
	case errors.Is(err, service.ErrStillPending):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternalError(w, err)
	}
}

func confirmationResultsJSON(results []service.ConfirmationResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		item := map[string]any{
			"requirement_id": res.RequirementID,
			"action_name":    res.ActionName,
			"approved":       res.Approved,
		}
		if res.Approved {
			item["output"] = res.Output
			if res.Err != nil {
				item["error"] = res.Err.Error()
			}
		}
		out = append(out, item)
	}
	return out
}

// ---------------------------------------------------------------------------
// Judge
// ---------------------------------------------------------------------------

type evaluateRequest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// EvaluateTurn scores one completed turn against the judge criteria.
func (h *Handlers) EvaluateTurn(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[evaluateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Output, "output") {
		return
	}

	if !h.judge.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "evaluation unavailable")
		return
	}
	if h.judge.Background() {
		h.judge.EvaluateAsync(r.Context(), req.Input, req.Output)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
		return
	}

	result := h.judge.EvaluateTurn(r.Context(), req.Input, req.Output)
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ---------------------------------------------------------------------------
// Intent
// ---------------------------------------------------------------------------

type intentRequest struct {
	Context constitution.CallerContext `json:"context"`
}

// GetIntent returns the live instructions for the caller's context.
func (h *Handlers) GetIntent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[intentRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instructions": h.intent.Instructions(req.Context),
	})
}

// ---------------------------------------------------------------------------
// Constitution
// ---------------------------------------------------------------------------

// GetConstitution returns the currently loaded rule set.
func (h *Handlers) GetConstitution(w http.ResponseWriter, r *http.Request) {
	rs, err := h.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "constitution unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
