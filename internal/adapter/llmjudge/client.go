// Package llmjudge provides an HTTP client for a chat-completions model
// used as an output judge. Any OpenAI-compatible endpoint works.
package llmjudge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/central73/intentgate/internal/port/scorer"
	"github.com/central73/intentgate/internal/resilience"
)

const systemPrompt = `You are an impartial evaluator. Score the assistant output against the
numbered criteria on a 0-10 scale, where 10 is full compliance. Respond
with a single JSON object: {"score": <number>, "reason": "<one sentence>"}.`

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a judge client. baseURL is the API root (e.g.
// "https://api.perplexity.ai"); model names the judge model.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// verdict is the JSON object the judge model is instructed to return.
type verdict struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// ScoreTurn submits one turn to the judge model and parses its verdict.
func (c *Client) ScoreTurn(ctx context.Context, criteria, input, output string) (scorer.Score, error) {
	userPrompt := fmt.Sprintf("CRITERIA:\n%s\n\nUSER INPUT:\n%s\n\nASSISTANT OUTPUT:\n%s", criteria, input, output)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return scorer.Score{}, fmt.Errorf("marshal judge request: %w", err)
	}

	data, err := c.doRequest(ctx, body)
	if err != nil {
		return scorer.Score{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return scorer.Score{}, fmt.Errorf("unmarshal judge response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return scorer.Score{}, fmt.Errorf("judge response has no choices")
	}

	v, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return scorer.Score{}, err
	}
	return scorer.Score{Value: v.Score, Reason: v.Reason}, nil
}

// parseVerdict extracts the verdict object. Models sometimes wrap the
// JSON in prose or code fences, so parse the first {...} span.
func parseVerdict(content string) (verdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return verdict{}, fmt.Errorf("no JSON verdict in judge output: %q", content)
	}

	var v verdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return verdict{}, fmt.Errorf("parse judge verdict: %w", err)
	}

	if v.Score < 0 {
		v.Score = 0
	}
	if v.Score > 10 {
		v.Score = 10
	}
	return v, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("judge API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
