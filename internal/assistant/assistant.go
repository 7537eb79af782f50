// Package assistant answers free-text ecosystem questions through an
// llm.Client.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/llm"
	"github.com/nvandessel/ecosim/internal/logging"
	"github.com/nvandessel/ecosim/internal/sanitize"
)

// ErrEmptyQuestion is returned when a question is blank after sanitizing.
var ErrEmptyQuestion = errors.New("question is empty")

// Answer is one assistant reply.
type Answer struct {
	Question string `json:"question"`
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Tip      string `json:"tip"`
}

// Assistant wraps a completion client with sanitizing and logging.
type Assistant struct {
	client llm.Client
	logger *slog.Logger
	trace  *logging.DecisionLogger
}

// New creates an Assistant. A nil logger discards output; a nil trace is a no-op.
func New(client llm.Client, logger *slog.Logger, trace *logging.DecisionLogger) *Assistant {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Assistant{client: client, logger: logger, trace: trace}
}

// Provider returns the name of the backing client.
func (a *Assistant) Provider() string {
	return llm.ProviderName(a.client)
}

// Ask sanitizes question, sends it to the client and returns the reply.
// Client failures are wrapped and returned unchanged in meaning.
func (a *Assistant) Ask(ctx context.Context, question string) (Answer, error) {
	q := sanitize.Question(question)
	if q == "" {
		return Answer{}, ErrEmptyQuestion
	}

	provider := a.Provider()
	prompt := llm.AssistantPrompt(q)
	a.logger.Log(ctx, logging.LevelTrace, "assistant prompt", "provider", provider, "prompt", prompt)

	start := time.Now()
	text, err := a.client.Complete(ctx, prompt)
	elapsed := time.Since(start)

	event := map[string]any{
		"event":       "assistant_ask",
		"provider":    provider,
		"duration_ms": elapsed.Milliseconds(),
		"ok":          err == nil,
	}
	if a.trace.IncludeContent() {
		event["question"] = q
		event["answer"] = text
	}
	if err != nil {
		event["error"] = err.Error()
	}
	a.trace.Log(event)

	if err != nil {
		a.logger.Debug("assistant request failed", "provider", provider, "error", err)
		return Answer{}, fmt.Errorf("asking %s: %w", provider, err)
	}

	a.logger.Log(ctx, logging.LevelTrace, "assistant response", "provider", provider, "response", text)
	a.logger.Debug("assistant answered", "provider", provider, "duration", elapsed)

	return Answer{
		Question: q,
		Text:     text,
		Provider: provider,
		Tip:      content.AssistantTip,
	}, nil
}
