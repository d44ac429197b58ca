// internal/scoring/queue.go
//
// EvaluationQueue: the process-wide client to the scoring backends.
// Responsibilities:
//   - Cap in-flight backend calls at MaxConcurrent, shared by all games.
//   - Admit waiting evaluations in FIFO order.
//   - Retry each evaluation up to Attempts times with linear backoff.
//
// A call fails only after every attempt failed; partial results are never
// returned. Entries dropped by validation do not count as failures.

package scoring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxConcurrent is the in-flight cap when none is configured.
	DefaultMaxConcurrent = 2
	// DefaultAttempts is the number of tries per evaluation.
	DefaultAttempts = 3
	// DefaultBackoff is multiplied by the attempt number between tries.
	DefaultBackoff = 400 * time.Millisecond

	maxResponseBytes = 1 << 20
	pendingBacklog   = 256
)

// Queue dispatches evaluations to providers with bounded concurrency.
type Queue struct {
	// Attempts and Backoff may be adjusted before first use.
	Attempts int
	Backoff  time.Duration

	client *http.Client
	pool   *pool
}

// NewQueue starts a queue admitting at most maxConcurrent calls at a time.
// A nil client uses http.DefaultClient.
func NewQueue(maxConcurrent int, client *http.Client) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Queue{
		Attempts: DefaultAttempts,
		Backoff:  DefaultBackoff,
		client:   client,
		pool:     newPool(maxConcurrent, pendingBacklog),
	}
}

// Close stops the queue. Evaluations already admitted run to completion.
func (q *Queue) Close() { q.pool.close() }

// Evaluate scores words with p. Words are de-duplicated case-insensitively;
// an empty list returns an empty result without touching the backend.
func (q *Queue) Evaluate(ctx context.Context, words []string, p Provider) (Result, error) {
	uniq := uniqueUpper(words)
	if len(uniq) == 0 {
		return Result{Evaluations: []Evaluation{}}, nil
	}

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	err := q.pool.submit(ctx, func() {
		res, err := q.call(ctx, uniq, p)
		done <- outcome{res, err}
	})
	if err != nil {
		return Result{}, err
	}
	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// call runs the retry loop for one evaluation.
func (q *Queue) call(ctx context.Context, words []string, p Provider) (Result, error) {
	prompt, err := NewPrompt(words)
	if err != nil {
		return Result{}, err
	}
	attempts := q.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := q.attempt(ctx, p, prompt)
		if err == nil {
			log.Debug().Str("provider", p.Name()).Int("attempt", attempt).
				Int("evaluations", len(res.Evaluations)).Msg("evaluation ok")
			return res, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("provider", p.Name()).Int("attempt", attempt).Msg("evaluation attempt failed")
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(q.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return Result{}, fmt.Errorf("scoring: %s failed after %d attempts: %w", p.Name(), attempts, lastErr)
}

// attempt performs one request/parse round trip.
func (q *Queue) attempt(ctx context.Context, p Provider, prompt Prompt) (Result, error) {
	req, err := p.NewRequest(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	content, err := p.Content(body)
	if err != nil {
		return Result{}, err
	}
	return ParseEvaluations(content)
}

func uniqueUpper(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
