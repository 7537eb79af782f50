package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/ecosim/internal/params"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	dbPath  string
	nowFunc func() time.Time
}

// NewSQLiteStore opens (creating if needed) dir/ecosim.db.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		dbPath:  dbPath,
		nowFunc: time.Now,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) now() time.Time {
	return s.nowFunc().UTC()
}

// AddFeedback implements Store.
func (s *SQLiteStore) AddFeedback(ctx context.Context, message string) (Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Feedback{}, fmt.Errorf("%w: feedback message is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fb := Feedback{CreatedAt: s.now(), Message: message}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (created_at, message) VALUES (?, ?)`,
		formatTime(fb.CreatedAt), fb.Message)
	if err != nil {
		return Feedback{}, fmt.Errorf("failed to insert feedback: %w", err)
	}
	if fb.ID, err = res.LastInsertId(); err != nil {
		return Feedback{}, fmt.Errorf("failed to read feedback id: %w", err)
	}
	return fb, nil
}

// ListFeedback implements Store.
func (s *SQLiteStore) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, created_at, message FROM feedback ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var fb Feedback
		var created string
		if err := rows.Scan(&fb.ID, &created, &fb.Message); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.CreatedAt = parseTime(created)
		out = append(out, fb)
	}
	return out, rows.Err()
}

// RecordQuizAttempt implements Store.
func (s *SQLiteStore) RecordQuizAttempt(ctx context.Context, attempt QuizAttempt) (QuizAttempt, error) {
	if strings.TrimSpace(attempt.Question) == "" {
		return QuizAttempt{}, fmt.Errorf("%w: quiz question is empty", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	attempt.CreatedAt = s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (created_at, question, answer, correct) VALUES (?, ?, ?, ?)`,
		formatTime(attempt.CreatedAt), attempt.Question, attempt.Answer, boolToInt(attempt.Correct))
	if err != nil {
		return QuizAttempt{}, fmt.Errorf("failed to insert quiz attempt: %w", err)
	}
	if attempt.ID, err = res.LastInsertId(); err != nil {
		return QuizAttempt{}, fmt.Errorf("failed to read quiz attempt id: %w", err)
	}
	return attempt, nil
}

// QuizScore implements Store.
func (s *SQLiteStore) QuizScore(ctx context.Context) (Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var score Score
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(correct), 0), COUNT(*) FROM quiz_attempts`).Scan(&score.Correct, &score.Total)
	if err != nil {
		return Score{}, fmt.Errorf("failed to compute quiz score: %w", err)
	}
	return score, nil
}

// SaveScenario implements Store.
func (s *SQLiteStore) SaveScenario(ctx context.Context, name string, p params.Parameters) (Scenario, error) {
	if name == "" {
		return Scenario{}, fmt.Errorf("%w: scenario name is empty", ErrInvalid)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios (name, created_at, updated_at, params) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at, params = excluded.params`,
		name, now, now, string(data))
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to save scenario %q: %w", name, err)
	}

	sc, err := s.getScenario(ctx, name)
	if err != nil {
		return Scenario{}, err
	}
	return *sc, nil
}

// GetScenario implements Store.
func (s *SQLiteStore) GetScenario(ctx context.Context, name string) (*Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getScenario(ctx, name)
}

func (s *SQLiteStore) getScenario(ctx context.Context, name string) (*Scenario, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, created_at, updated_at, params FROM scenarios WHERE name = ?`, name)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scenario %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// ListScenarios implements Store.
func (s *SQLiteStore) ListScenarios(ctx context.Context) ([]Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, created_at, updated_at, params FROM scenarios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var out []Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

// DeleteScenario implements Store.
func (s *SQLiteStore) DeleteScenario(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete scenario %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("scenario %q: %w", name, ErrNotFound)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (*Scenario, error) {
	var sc Scenario
	var created, updated, raw string
	if err := row.Scan(&sc.Name, &created, &updated, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan scenario: %w", err)
	}

	// Start from defaults so fields added after the scenario was saved are filled.
	sc.Params = params.Default()
	if err := json.Unmarshal([]byte(raw), &sc.Params); err != nil {
		return nil, fmt.Errorf("failed to decode scenario %q: %w", sc.Name, err)
	}
	sc.CreatedAt = parseTime(created)
	sc.UpdatedAt = parseTime(updated)
	return &sc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
