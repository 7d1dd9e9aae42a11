package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	igotel "github.com/central73/intentgate/internal/adapter/otel"
	"github.com/central73/intentgate/internal/adapter/ws"
	"github.com/central73/intentgate/internal/domain/judge"
	"github.com/central73/intentgate/internal/port/broadcast"
	"github.com/central73/intentgate/internal/port/messagequeue"
	"github.com/central73/intentgate/internal/port/notifier"
	"github.com/central73/intentgate/internal/port/scorer"
)

// JudgeService scores completed turns against qualitative criteria and
// escalates failures. It never blocks or influences the invocation
// pipeline: scoring happens after execution, and a scorer outage degrades
// to a skipped evaluation rather than an error.
type JudgeService struct {
	scorer        scorer.Scorer
	notifications *NotificationService
	hub           broadcast.Broadcaster // optional
	queue         messagequeue.Queue    // optional
	metrics       *igotel.Metrics       // optional
	criteria      string
	threshold     float64
	background    bool

	// sem bounds concurrent background scoring calls so a burst of turns
	// cannot pile up requests against the scorer.
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewJudgeService creates a JudgeService. criteriaPath points at a plain
// text criteria file; a missing file disables evaluation (EvaluateTurn
// returns nil) rather than failing startup. threshold outside (0, 10]
// falls back to judge.DefaultThreshold. With background set, callers that
// honor Background() score turns asynchronously instead of blocking on
// the scorer.
func NewJudgeService(sc scorer.Scorer, notifications *NotificationService, hub broadcast.Broadcaster, queue messagequeue.Queue, metrics *igotel.Metrics, criteriaPath string, threshold float64, background bool) *JudgeService {
	if threshold <= 0 || threshold > 10 {
		threshold = judge.DefaultThreshold
	}

	var criteria string
	if criteriaPath != "" {
		data, err := os.ReadFile(criteriaPath)
		if err != nil {
			slog.Warn("judge criteria unavailable, evaluation disabled",
				"path", criteriaPath,
				"error", err,
			)
		} else {
			criteria = strings.TrimSpace(string(data))
		}
	}

	return &JudgeService{
		scorer:        sc,
		notifications: notifications,
		hub:           hub,
		queue:         queue,
		metrics:       metrics,
		criteria:      criteria,
		threshold:     threshold,
		background:    background,
		sem:           semaphore.NewWeighted(4),
	}
}

// Enabled reports whether the service has both a scorer and criteria.
func (s *JudgeService) Enabled() bool {
	return s.scorer != nil && s.criteria != ""
}

// Background reports whether turns should be scored asynchronously.
func (s *JudgeService) Background() bool {
	return s.background
}

// EvaluateTurn scores one turn synchronously. It returns nil when
// evaluation is disabled or the scorer fails; the turn's own result is
// never affected either way. A failing score triggers exactly one
// escalation before the result is returned.
func (s *JudgeService) EvaluateTurn(ctx context.Context, input, output string) *judge.EvaluationResult {
	if !s.Enabled() {
		return nil
	}

	ctx, span := igotel.StartEvaluationSpan(ctx, s.threshold)
	defer span.End()

	score, err := s.scorer.ScoreTurn(ctx, s.criteria, input, output)
	if err != nil {
		span.RecordError(err)
		slog.Warn("turn scoring failed, skipping evaluation", "error", err)
		return nil
	}

	result := &judge.EvaluationResult{
		Score:  score.Value,
		Passed: score.Value >= s.threshold,
		Reason: score.Reason,
		Input:  input,
		Output: output,
		At:     time.Now(),
	}
	if s.metrics != nil {
		s.metrics.RecordJudgeScore(ctx, result.Score, result.Passed)
	}
	slog.Info("turn evaluated",
		"score", result.Score,
		"threshold", s.threshold,
		"passed", result.Passed,
	)

	if !result.Passed {
		s.escalate(ctx, result)
	}
	return result
}

// EvaluateAsync scores the turn in the background, fire-and-forget. Close
// joins all in-flight evaluations so shutdown never abandons an
// escalation.
func (s *JudgeService) EvaluateAsync(ctx context.Context, input, output string) {
	if !s.Enabled() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg := context.WithoutCancel(ctx)
		if err := s.sem.Acquire(bg, 1); err != nil {
			return
		}
		defer s.sem.Release(1)
		s.EvaluateTurn(bg, input, output)
	}()
}

// Close waits for in-flight background evaluations to finish.
func (s *JudgeService) Close() {
	s.wg.Wait()
}

func (s *JudgeService) escalate(ctx context.Context, result *judge.EvaluationResult) {
	status := judge.DeliverySkipped
	if s.notifications != nil {
		status = s.notifications.Escalate(ctx, notifier.Notification{
			Title:   "Brand risk detected",
			Message: fmt.Sprintf("Turn scored %.1f (threshold %.1f): %s", result.Score, s.threshold, result.Reason),
			Level:   "warning",
			Source:  "judge",
			Fields: map[string]string{
				"score":  fmt.Sprintf("%.1f", result.Score),
				"input":  truncate(result.Input, 500),
				"output": truncate(result.Output, 500),
			},
		})
	} else {
		slog.Warn("no notification service, escalation logged locally",
			"score", result.Score,
			"reason", result.Reason,
		)
	}

	if s.metrics != nil {
		s.metrics.RecordEscalation(ctx, string(status))
	}

	event := judge.EscalationEvent{
		Result:         *result,
		DeliveryStatus: status,
		At:             time.Now(),
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventEscalationRaised, ws.EscalationRaisedEvent{
			Score:          result.Score,
			Reason:         result.Reason,
			DeliveryStatus: string(status),
		})
	}
	if s.queue != nil && s.queue.IsConnected() {
		if data, err := json.Marshal(event); err == nil {
			if err := s.queue.Publish(ctx, messagequeue.SubjectEscalationRaised, data); err != nil {
				slog.Warn("escalation publish failed", "error", err)
			}
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
