package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Snapshot is the complete session history, oldest records first.
type Snapshot struct {
	Feedback     []Feedback    `json:"feedback"`
	QuizAttempts []QuizAttempt `json:"quiz_attempts"`
	Scenarios    []Scenario    `json:"scenarios"`
}

// RestoreMode controls how a snapshot is applied to a store.
type RestoreMode string

const (
	// RestoreMerge keeps existing records and skips duplicates (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears the store before restoring.
	RestoreReplace RestoreMode = "replace"
)

// ParseRestoreMode maps "" to RestoreMerge and rejects unknown modes.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RestoreMerge:
		return RestoreMerge, nil
	case RestoreReplace:
		return RestoreReplace, nil
	default:
		return "", fmt.Errorf("%w: restore mode %q (valid: merge, replace)", ErrInvalid, s)
	}
}

// RestoreResult counts restored and skipped records.
type RestoreResult struct {
	FeedbackRestored  int `json:"feedback_restored"`
	FeedbackSkipped   int `json:"feedback_skipped"`
	AttemptsRestored  int `json:"attempts_restored"`
	AttemptsSkipped   int `json:"attempts_skipped"`
	ScenariosRestored int `json:"scenarios_restored"`
	ScenariosSkipped  int `json:"scenarios_skipped"`
}

// Records returns the number of records in the snapshot.
func (s *Snapshot) Records() int {
	return len(s.Feedback) + len(s.QuizAttempts) + len(s.Scenarios)
}

// Feedback and quiz attempts are matched on timestamp and content; ids are
// reassigned on restore.
func feedbackKey(fb Feedback) string {
	return formatTime(fb.CreatedAt) + "\x00" + fb.Message
}

func attemptKey(a QuizAttempt) string {
	return formatTime(a.CreatedAt) + "\x00" + a.Question + "\x00" + a.Answer
}

// Snapshot implements Store.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{}

	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, message FROM feedback ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	for rows.Next() {
		var fb Feedback
		var created string
		if err := rows.Scan(&fb.ID, &created, &fb.Message); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.CreatedAt = parseTime(created)
		snap.Feedback = append(snap.Feedback, fb)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, created_at, question, answer, correct FROM quiz_attempts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz attempts: %w", err)
	}
	for rows.Next() {
		var a QuizAttempt
		var created string
		var correct int
		if err := rows.Scan(&a.ID, &created, &a.Question, &a.Answer, &correct); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan quiz attempt: %w", err)
		}
		a.CreatedAt = parseTime(created)
		a.Correct = correct != 0
		snap.QuizAttempts = append(snap.QuizAttempts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT name, created_at, updated_at, params FROM scenarios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		snap.Scenarios = append(snap.Scenarios, *sc)
	}
	return snap, rows.Err()
}

// Restore implements Store. The whole restore runs in one transaction.
func (s *SQLiteStore) Restore(ctx context.Context, snap *Snapshot, mode RestoreMode) (*RestoreResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if mode == RestoreReplace {
		for _, table := range []string{"feedback", "quiz_attempts", "scenarios"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return nil, fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	result := &RestoreResult{}

	for _, fb := range snap.Feedback {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM feedback WHERE created_at = ? AND message = ?`,
			formatTime(fb.CreatedAt), fb.Message).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check feedback: %w", err)
		}
		if exists > 0 {
			result.FeedbackSkipped++
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feedback (created_at, message) VALUES (?, ?)`,
			formatTime(fb.CreatedAt), fb.Message); err != nil {
			return nil, fmt.Errorf("failed to restore feedback: %w", err)
		}
		result.FeedbackRestored++
	}

	for _, a := range snap.QuizAttempts {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM quiz_attempts WHERE created_at = ? AND question = ? AND answer = ?`,
			formatTime(a.CreatedAt), a.Question, a.Answer).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check quiz attempt: %w", err)
		}
		if exists > 0 {
			result.AttemptsSkipped++
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_attempts (created_at, question, answer, correct) VALUES (?, ?, ?, ?)`,
			formatTime(a.CreatedAt), a.Question, a.Answer, boolToInt(a.Correct)); err != nil {
			return nil, fmt.Errorf("failed to restore quiz attempt: %w", err)
		}
		result.AttemptsRestored++
	}

	for _, sc := range snap.Scenarios {
		if sc.Name == "" {
			result.ScenariosSkipped++
			continue
		}
		data, err := json.Marshal(sc.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal scenario %q: %w", sc.Name, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO scenarios (name, created_at, updated_at, params) VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING`,
			sc.Name, formatTime(sc.CreatedAt), formatTime(sc.UpdatedAt), string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to restore scenario %q: %w", sc.Name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.ScenariosSkipped++
			continue
		}
		result.ScenariosRestored++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit restore: %w", err)
	}
	return result, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenarios := lo.Values(s.scenarios)
	slices.SortFunc(scenarios, func(a, b Scenario) int { return strings.Compare(a.Name, b.Name) })

	return &Snapshot{
		Feedback:     slices.Clone(s.feedback),
		QuizAttempts: slices.Clone(s.attempts),
		Scenarios:    scenarios,
	}, nil
}

// Restore implements Store.
func (s *MemoryStore) Restore(ctx context.Context, snap *Snapshot, mode RestoreMode) (*RestoreResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == RestoreReplace {
		s.feedback = nil
		s.attempts = nil
		s.scenarios = make(map[string]Scenario)
	}

	result := &RestoreResult{}

	seenFeedback := lo.SliceToMap(s.feedback, func(fb Feedback) (string, bool) { return feedbackKey(fb), true })
	for _, fb := range snap.Feedback {
		key := feedbackKey(fb)
		if seenFeedback[key] {
			result.FeedbackSkipped++
			continue
		}
		seenFeedback[key] = true
		fb.ID = int64(len(s.feedback) + 1)
		s.feedback = append(s.feedback, fb)
		result.FeedbackRestored++
	}

	seenAttempts := lo.SliceToMap(s.attempts, func(a QuizAttempt) (string, bool) { return attemptKey(a), true })
	for _, a := range snap.QuizAttempts {
		key := attemptKey(a)
		if seenAttempts[key] {
			result.AttemptsSkipped++
			continue
		}
		seenAttempts[key] = true
		a.ID = int64(len(s.attempts) + 1)
		s.attempts = append(s.attempts, a)
		result.AttemptsRestored++
	}

	for _, sc := range snap.Scenarios {
		if _, ok := s.scenarios[sc.Name]; ok || sc.Name == "" {
			result.ScenariosSkipped++
			continue
		}
		s.scenarios[sc.Name] = sc
		result.ScenariosRestored++
	}

	return result, nil
}
