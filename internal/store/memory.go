package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/ecosim/internal/params"
	"github.com/samber/lo"
)

// MemoryStore implements Store in memory, for tests and --no-store runs.
type MemoryStore struct {
	mu        sync.RWMutex
	feedback  []Feedback
	attempts  []QuizAttempt
	scenarios map[string]Scenario
	nowFunc   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string]Scenario),
		nowFunc:   time.Now,
	}
}

// AddFeedback implements Store.
func (s *MemoryStore) AddFeedback(ctx context.Context, message string) (Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Feedback{}, fmt.Errorf("%w: feedback message is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fb := Feedback{ID: int64(len(s.feedback) + 1), CreatedAt: s.nowFunc().UTC(), Message: message}
	s.feedback = append(s.feedback, fb)
	return fb, nil
}

// ListFeedback implements Store.
func (s *MemoryStore) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.feedback)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordQuizAttempt implements Store.
func (s *MemoryStore) RecordQuizAttempt(ctx context.Context, attempt QuizAttempt) (QuizAttempt, error) {
	if strings.TrimSpace(attempt.Question) == "" {
		return QuizAttempt{}, fmt.Errorf("%w: quiz question is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	attempt.ID = int64(len(s.attempts) + 1)
	attempt.CreatedAt = s.nowFunc().UTC()
	s.attempts = append(s.attempts, attempt)
	return attempt, nil
}

// QuizScore implements Store.
func (s *MemoryStore) QuizScore(ctx context.Context) (Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Score{
		Correct: lo.CountBy(s.attempts, func(a QuizAttempt) bool { return a.Correct }),
		Total:   len(s.attempts),
	}, nil
}

// SaveScenario implements Store.
func (s *MemoryStore) SaveScenario(ctx context.Context, name string, p params.Parameters) (Scenario, error) {
	if name == "" {
		return Scenario{}, fmt.Errorf("%w: scenario name is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc().UTC()
	sc, ok := s.scenarios[name]
	if !ok {
		sc = Scenario{Name: name, CreatedAt: now}
	}
	sc.UpdatedAt = now
	sc.Params = p
	s.scenarios[name] = sc
	return sc, nil
}

// GetScenario implements Store.
func (s *MemoryStore) GetScenario(ctx context.Context, name string) (*Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", name, ErrNotFound)
	}
	return &sc, nil
}

// ListScenarios implements Store.
func (s *MemoryStore) ListScenarios(ctx context.Context) ([]Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Values(s.scenarios)
	slices.SortFunc(out, func(a, b Scenario) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// DeleteScenario implements Store.
func (s *MemoryStore) DeleteScenario(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenarios[name]; !ok {
		return fmt.Errorf("scenario %q: %w", name, ErrNotFound)
	}
	delete(s.scenarios, name)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
