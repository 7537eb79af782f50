package mcp

import (
	"github.com/nvandessel/ecosim/internal/analysis"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/ecosystem"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/store"
)

// SimulateInput defines the input for the ecosim_simulate tool.
type SimulateInput struct {
	Scenario      string             `json:"scenario,omitempty" jsonschema:"Name of a saved scenario to start from instead of the defaults"`
	Params        map[string]float64 `json:"params,omitempty" jsonschema:"Parameter overrides keyed by name, e.g. plant_growth_rate, water_availability, steps"`
	IncludeSeries bool               `json:"include_series,omitempty" jsonschema:"Return the full per-step population series (default: false)"`
}

// SimulateOutput defines the output for the ecosim_simulate tool.
type SimulateOutput struct {
	Params      params.Parameters           `json:"params" jsonschema:"Parameters the run used"`
	Summary     analysis.Summary            `json:"summary" jsonschema:"Mean, min, max, final and standard deviation per species"`
	Insights    analysis.Report             `json:"insights" jsonschema:"Thrived or declined verdict per species"`
	Correlation analysis.Matrix             `json:"correlation" jsonschema:"Pearson correlation between the three populations"`
	Series      *ecosystem.PopulationSeries `json:"series,omitempty" jsonschema:"Per-step populations, present when include_series is set"`
	Message     string                      `json:"message" jsonschema:"Human-readable result message"`
}

// AskInput defines the input for the ecosim_ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"Question about ecosystems, species or the simulation parameters"`
}

// AskOutput defines the output for the ecosim_ask tool.
type AskOutput struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider" jsonschema:"Backend that produced the answer"`
	Tip      string `json:"tip"`
}

// TipsInput defines the input for the ecosim_tips tool.
type TipsInput struct {
	Species string `json:"species,omitempty" jsonschema:"Species or habitat name; empty lists the available species"`
}

// TipsOutput defines the output for the ecosim_tips tool.
type TipsOutput struct {
	Species    string   `json:"species,omitempty"`
	Strategies []string `json:"strategies,omitempty"`
	Available  []string `json:"available,omitempty" jsonschema:"Species with conservation guides"`
	Message    string   `json:"message"`
}

// QuizInput defines the input for the ecosim_quiz tool.
type QuizInput struct {
	Question string `json:"question,omitempty" jsonschema:"Question number (1-based) or text; empty lists the quiz"`
	Answer   string `json:"answer,omitempty" jsonschema:"Chosen option; required when question is set"`
}

// QuizOutput defines the output for the ecosim_quiz tool.
type QuizOutput struct {
	Questions []QuizQuestion  `json:"questions,omitempty" jsonschema:"Quiz questions without answers"`
	Result    *content.Result `json:"result,omitempty"`
	Score     store.Score     `json:"score" jsonschema:"Correct answers out of all recorded attempts"`
	Message   string          `json:"message"`
}

// QuizQuestion is a quiz question as shown before answering.
type QuizQuestion struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// FeedbackInput defines the input for the ecosim_feedback tool.
type FeedbackInput struct {
	Message string `json:"message" jsonschema:"Free-text feedback about the simulator"`
}

// FeedbackOutput defines the output for the ecosim_feedback tool.
type FeedbackOutput struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// BackupInput defines the input for the ecosim_backup tool.
type BackupInput struct {
	Output string `json:"output,omitempty" jsonschema:"File name or path inside the backups directory (default: timestamped name)"`
}

// BackupOutput defines the output for the ecosim_backup tool.
type BackupOutput struct {
	Path          string `json:"path"`
	Version       int    `json:"version"`
	Compressed    bool   `json:"compressed"`
	SizeBytes     int64  `json:"size_bytes"`
	FeedbackCount int    `json:"feedback_count"`
	AttemptCount  int    `json:"attempt_count"`
	ScenarioCount int    `json:"scenario_count"`
	Message       string `json:"message"`
}

// RestoreInput defines the input for the ecosim_restore tool.
type RestoreInput struct {
	Input string `json:"input" jsonschema:"Backup file name or path inside the backups directory"`
	Mode  string `json:"mode,omitempty" jsonschema:"merge (default) keeps existing records; replace clears history first"`
}

// RestoreOutput defines the output for the ecosim_restore tool.
type RestoreOutput struct {
	Result  store.RestoreResult `json:"result"`
	Mode    store.RestoreMode   `json:"mode"`
	Message string              `json:"message"`
}
