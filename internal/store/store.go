// Package store persists session history: feedback messages, quiz attempts
// and named parameter scenarios. Simulation runs themselves are never stored.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/ecosim/internal/params"
)

// DBFile is the SQLite database name inside the ecosim directory.
const DBFile = "ecosim.db"

var (
	// ErrNotFound is returned when a scenario does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned for empty feedback, questions or scenario names.
	ErrInvalid = errors.New("invalid input")
)

// Feedback is one stored feedback message.
type Feedback struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// QuizAttempt records one answered quiz question.
type QuizAttempt struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Correct   bool      `json:"correct"`
}

// Scenario is a named parameter preset.
type Scenario struct {
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Params    params.Parameters `json:"params"`
}

// Score summarises quiz attempts.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Store is the session history interface.
type Store interface {
	// AddFeedback stores a message and returns the stored record.
	AddFeedback(ctx context.Context, message string) (Feedback, error)

	// ListFeedback returns up to limit messages, newest first. limit <= 0 means all.
	ListFeedback(ctx context.Context, limit int) ([]Feedback, error)

	RecordQuizAttempt(ctx context.Context, attempt QuizAttempt) (QuizAttempt, error)
	QuizScore(ctx context.Context) (Score, error)

	// SaveScenario inserts or replaces the named scenario.
	SaveScenario(ctx context.Context, name string, p params.Parameters) (Scenario, error)

	// GetScenario returns ErrNotFound for unknown names.
	GetScenario(ctx context.Context, name string) (*Scenario, error)

	// ListScenarios returns all scenarios ordered by name.
	ListScenarios(ctx context.Context) ([]Scenario, error)

	// DeleteScenario returns ErrNotFound for unknown names.
	DeleteScenario(ctx context.Context, name string) error

	// Snapshot returns every stored record for backup.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Restore loads a snapshot. In merge mode existing records win.
	Restore(ctx context.Context, snap *Snapshot, mode RestoreMode) (*RestoreResult, error)

	Close() error
}
