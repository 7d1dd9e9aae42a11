package llmjudge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/central73/intentgate/internal/port/scorer"
)

// Compile-time interface check.
var _ scorer.Scorer = (*Client)(nil)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScoreTurn(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant",
			"content": "{\"score\": 8.5, \"reason\": \"on brand\"}"}}]
	}`)

	c := NewClient(srv.URL, "test-key", "sonar-pro")
	score, err := c.ScoreTurn(context.Background(), "1. Be polite.", "refund please", "Of course!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Value != 8.5 {
		t.Fatalf("expected 8.5, got %v", score.Value)
	}
	if score.Reason != "on brand" {
		t.Fatalf("expected reason 'on brand', got %q", score.Reason)
	}
}

func TestScoreTurnFencedVerdict(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant",
			"content": "Here is my verdict:\n{\"score\": 3, \"reason\": \"hostile tone\"}\nDone."}}]
	}`)

	c := NewClient(srv.URL, "test-key", "sonar-pro")
	score, err := c.ScoreTurn(context.Background(), "criteria", "in", "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Value != 3 {
		t.Fatalf("expected 3, got %v", score.Value)
	}
}

func TestScoreTurnAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, "internal error")

	c := NewClient(srv.URL, "test-key", "sonar-pro")
	if _, err := c.ScoreTurn(context.Background(), "criteria", "in", "out"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestScoreTurnNoVerdict(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant", "content": "I cannot judge this."}}]
	}`)

	c := NewClient(srv.URL, "test-key", "sonar-pro")
	if _, err := c.ScoreTurn(context.Background(), "criteria", "in", "out"); err == nil {
		t.Fatal("expected error when no JSON verdict present")
	}
}

func TestParseVerdictClamp(t *testing.T) {
	v, err := parseVerdict(`{"score": 42, "reason": "overflow"}`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Score != 10 {
		t.Fatalf("expected clamp to 10, got %v", v.Score)
	}

	v, err = parseVerdict(`{"score": -1, "reason": "underflow"}`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Score != 0 {
		t.Fatalf("expected clamp to 0, got %v", v.Score)
	}
}
