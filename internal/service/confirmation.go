package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/central73/intentgate/internal/adapter/ws"
	"github.com/central73/intentgate/internal/domain/audit"
	"github.com/central73/intentgate/internal/domain/constitution"
	"github.com/central73/intentgate/internal/port/broadcast"
)

// RequirementState is the lifecycle of a confirmation requirement.
type RequirementState string

const (
	StatePending  RequirementState = "pending"
	StateApproved RequirementState = "approved"
	StateRejected RequirementState = "rejected"
)

var (
	// ErrUnknownRequirement is returned when resolving an ID that does not
	// exist or was already consumed by a resume.
	ErrUnknownRequirement = errors.New("confirmation: unknown requirement")
	// ErrAlreadyResolved is returned on double resolution.
	ErrAlreadyResolved = errors.New("confirmation: requirement already resolved")
	// ErrStillPending is returned by Resume while any requirement of the
	// run has not been decided.
	ErrStillPending = errors.New("confirmation: run has unresolved requirements")
)

// Requirement is one human gate for an approved invocation. It is created
// only after the constitution approved the call; confirmation never
// bypasses policy.
type Requirement struct {
	ID         string                  `json:"id"`
	Invocation constitution.Invocation `json:"invocation"`
	State      RequirementState        `json:"state"`
	CreatedAt  time.Time               `json:"created_at"`
	ResolvedAt time.Time               `json:"resolved_at,omitzero"`

	execute  Executor
	executed bool
	decided  chan RequirementState
}

// PendingError is the control-flow suspension signal, not a failure: the
// run is paused and control returns to the orchestrating caller, which
// must resolve every requirement and then resume the run.
type PendingError struct {
	Requirements []*Requirement
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("confirmation pending: %d action(s) awaiting human decision", len(e.Requirements))
}

// ConfirmationResult is one resumed requirement's outcome.
type ConfirmationResult struct {
	RequirementID string `json:"requirement_id"`
	ActionName    string `json:"action_name"`
	Approved      bool   `json:"approved"`
	Output        any    `json:"output,omitempty"`
	Err           error  `json:"-"`
}

// ConfirmationService is the state machine for human sign-off. Each
// requirement moves pending -> approved|rejected exactly once; approval
// triggers exactly one execution of the gated side effect.
type ConfirmationService struct {
	hub         broadcast.Broadcaster // optional
	waitTimeout time.Duration

	mu    sync.Mutex
	reqs  map[string]*Requirement   // by requirement ID, live until resumed
	byRun map[string][]*Requirement // all requirements of a run, pending or decided
}

// NewConfirmationService creates a ConfirmationService. hub may be nil.
func NewConfirmationService(hub broadcast.Broadcaster, waitTimeout time.Duration) *ConfirmationService {
	if waitTimeout <= 0 {
		waitTimeout = 60 * time.Second
	}
	return &ConfirmationService{
		hub:         hub,
		waitTimeout: waitTimeout,
		reqs:        make(map[string]*Requirement),
		byRun:       make(map[string][]*Requirement),
	}
}

// Require registers a pending requirement for an approved invocation and
// announces it to connected clients. The gated action does not execute
// until the requirement is approved.
func (s *ConfirmationService) Require(ctx context.Context, inv constitution.Invocation, exec Executor) *Requirement {
	req := &Requirement{
		ID:         uuid.NewString(),
		Invocation: inv,
		State:      StatePending,
		CreatedAt:  time.Now(),
		execute:    exec,
		decided:    make(chan RequirementState, 1),
	}

	s.mu.Lock()
	s.reqs[req.ID] = req
	s.byRun[inv.RunID] = append(s.byRun[inv.RunID], req)
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventConfirmationRequest, ws.ConfirmationRequestEvent{
			RequirementID: req.ID,
			RunID:         inv.RunID,
			ActionName:    inv.ActionName,
			Arguments:     audit.Sanitize(inv.Arguments),
		})
	}

	slog.Info("confirmation required",
		"requirement_id", req.ID,
		"run_id", inv.RunID,
		"action", inv.ActionName,
	)
	return req
}

// Pending returns snapshots of the run's unresolved requirements, exposing
// per requirement the action name and arguments being gated.
func (s *ConfirmationService) Pending(runID string) []Requirement {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Requirement
	for _, req := range s.byRun[runID] {
		if req.State == StatePending {
			out = append(out, snapshot(req))
		}
	}
	return out
}

// PendingAll returns snapshots of every unresolved requirement.
func (s *ConfirmationService) PendingAll() []Requirement {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Requirement
	for _, req := range s.reqs {
		if req.State == StatePending {
			out = append(out, snapshot(req))
		}
	}
	return out
}

// Resolve records a human decision for one requirement. The transition is
// one-way: resolving an already-decided or unknown requirement fails.
// Resolution does not execute the action; Resume does, so that all of a
// run's requirements are decided before any side effect fires.
func (s *ConfirmationService) Resolve(ctx context.Context, requirementID string, approve bool) error {
	s.mu.Lock()
	req, ok := s.reqs[requirementID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRequirement, requirementID)
	}
	if req.State != StatePending {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, requirementID, req.State)
	}

	req.State = StateRejected
	if approve {
		req.State = StateApproved
	}
	req.ResolvedAt = time.Now()
	state := req.State
	s.mu.Unlock()

	// Buffer of 1: the signal lands even when nobody is blocked waiting.
	req.decided <- state

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventConfirmationResolved, ws.ConfirmationResolvedEvent{
			RequirementID: requirementID,
			RunID:         req.Invocation.RunID,
			ActionName:    req.Invocation.ActionName,
			State:         string(state),
		})
	}

	slog.Info("confirmation resolved",
		"requirement_id", requirementID,
		"action", req.Invocation.ActionName,
		"state", state,
	)
	return nil
}

// Resume executes the run's approved requirements, exactly once each, and
// discards all of the run's requirements. It fails with ErrStillPending if
// any requirement has not been decided: the single blocking join of the
// pipeline.
//
// A rejected requirement yields a result with Approved=false and no
// output. That is a human cancellation, not a policy error.
func (s *ConfirmationService) Resume(ctx context.Context, runID string) ([]ConfirmationResult, error) {
	s.mu.Lock()
	reqs := s.byRun[runID]
	for _, req := range reqs {
		if req.State == StatePending {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: run %s", ErrStillPending, runID)
		}
	}
	delete(s.byRun, runID)
	for _, req := range reqs {
		delete(s.reqs, req.ID)
	}
	s.mu.Unlock()

	results := make([]ConfirmationResult, 0, len(reqs))
	for _, req := range reqs {
		res := ConfirmationResult{
			RequirementID: req.ID,
			ActionName:    req.Invocation.ActionName,
			Approved:      req.State == StateApproved,
		}
		if req.State == StateApproved && !req.executed {
			req.executed = true
			res.Output, res.Err = req.execute(ctx, &req.Invocation)
		}
		results = append(results, res)
	}
	return results, nil
}

// WaitDecision blocks until the requirement is resolved, the wait times
// out, or ctx is canceled. Timeout and cancellation resolve the
// requirement as rejected: an unattended gate never executes.
func (s *ConfirmationService) WaitDecision(ctx context.Context, requirementID string) RequirementState {
	s.mu.Lock()
	req, ok := s.reqs[requirementID]
	s.mu.Unlock()
	if !ok {
		return StateRejected
	}

	select {
	case state := <-req.decided:
		return state
	case <-time.After(s.waitTimeout):
		slog.Warn("confirmation wait timed out, rejecting",
			"requirement_id", requirementID,
			"action", req.Invocation.ActionName,
		)
	case <-ctx.Done():
	}

	// Timed out or canceled. A racing Resolve may have landed already;
	// honor it instead of forcing a rejection.
	if err := s.Resolve(ctx, requirementID, false); err != nil {
		select {
		case state := <-req.decided:
			return state
		default:
		}
	}
	return StateRejected
}

func snapshot(req *Requirement) Requirement {
	return Requirement{
		ID:         req.ID,
		Invocation: req.Invocation,
		State:      req.State,
		CreatedAt:  req.CreatedAt,
		ResolvedAt: req.ResolvedAt,
	}
}
