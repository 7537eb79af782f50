package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"

	"github.com/nvandessel/ecosim/internal/analysis"
	"github.com/nvandessel/ecosim/internal/backup"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/ratelimit"
	"github.com/nvandessel/ecosim/internal/sanitize"
	"github.com/nvandessel/ecosim/internal/store"
)

const (
	resourcesURI  = "ecosim://resources"
	speciesURI    = "ecosim://species"
	tipsURIPrefix = "ecosim://tips/"
	markdownMIME  = "text/markdown"
	toolSimulate  = "ecosim_simulate"
	toolAsk       = "ecosim_ask"
	toolTips      = "ecosim_tips"
	toolQuiz      = "ecosim_quiz"
	toolFeedback  = "ecosim_feedback"
	toolBackup    = "ecosim_backup"
	toolRestore   = "ecosim_restore"
)

// registerTools registers all ecosim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolSimulate,
		Description: "Run the plant/herbivore/predator population simulation and summarize the outcome",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolAsk,
		Description: "Ask the ecosystem assistant a question about species, habitats or simulation parameters",
	}, s.handleAsk)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolTips,
		Description: "Get conservation strategies for a species or habitat",
	}, s.handleTips)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolQuiz,
		Description: "List the ecology quiz, or answer one question and record the attempt",
	}, s.handleQuiz)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolFeedback,
		Description: "Leave feedback about the simulator",
	}, s.handleFeedback)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolBackup,
		Description: "Back up feedback, quiz attempts and saved scenarios to a file in the backups directory",
	}, s.handleBackup)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolRestore,
		Description: "Restore feedback, quiz attempts and saved scenarios from a backup file (merge or replace)",
	}, s.handleRestore)
}

// registerResources registers the static reference material as MCP resources.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         resourcesURI,
		Name:        "ecosim-resources",
		Description: "Curated reading on ecosystems, biodiversity and conservation.",
		MIMEType:    markdownMIME,
	}, s.handleResourcesResource)

	s.server.AddResource(&sdk.Resource{
		URI:         speciesURI,
		Name:        "ecosim-species",
		Description: "Species and habitats with conservation guides.",
		MIMEType:    markdownMIME,
	}, s.handleSpeciesResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: tipsURIPrefix + "{species}",
		Name:        "ecosim-tips",
		Description: "Conservation strategies for one species.",
		MIMEType:    markdownMIME,
	}, s.handleTipsResource)
}

func markdownResult(uri, text string) *sdk.ReadResourceResult {
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: uri, MIMEType: markdownMIME, Text: text},
		},
	}
}

func (s *Server) handleResourcesResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Educational Resources\n")
	for _, g := range s.library.Resources() {
		fmt.Fprintf(&sb, "\n## %s\n\n", g.Category)
		for _, l := range g.Links {
			fmt.Fprintf(&sb, "- [%s](%s)", l.Title, l.URL)
			if l.Description != "" {
				sb.WriteString(": " + l.Description)
			}
			sb.WriteString("\n")
		}
	}
	return markdownResult(resourcesURI, sb.String()), nil
}

func (s *Server) handleSpeciesResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Conservation Guides\n\n")
	for _, name := range s.library.Species() {
		fmt.Fprintf(&sb, "- %s (%s%s)\n", name, tipsURIPrefix, url.PathEscape(name))
	}
	return markdownResult(speciesURI, sb.String()), nil
}

func (s *Server) handleTipsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, tipsURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	name, err := url.PathUnescape(strings.TrimPrefix(uri, tipsURIPrefix))
	if err != nil || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("species is required in %s", uri)
	}

	guide, ok := s.library.Tips(name)
	if !ok {
		return nil, sdk.ResourceNotFoundError(uri)
	}
	return markdownResult(uri, guide.Markdown()), nil
}

// handleSimulate implements the ecosim_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	p := s.defaults
	defer func() {
		s.auditTool(toolSimulate, start, retErr, sanitizeToolParams(map[string]interface{}{
			"scenario": args.Scenario, "overrides": len(args.Params),
			"include_series": args.IncludeSeries, "steps": p.Steps,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolSimulate); err != nil {
		return nil, SimulateOutput{}, err
	}

	if args.Scenario != "" {
		name := sanitize.ScenarioName(args.Scenario)
		sc, err := s.store.GetScenario(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, SimulateOutput{}, fmt.Errorf("scenario %q not found", name)
		}
		if err != nil {
			return nil, SimulateOutput{}, fmt.Errorf("failed to load scenario: %w", err)
		}
		p = sc.Params
	}

	keys := lo.Keys(args.Params)
	slices.Sort(keys)
	for _, key := range keys {
		value := strconv.FormatFloat(args.Params[key], 'f', -1, 64)
		if err := params.Set(&p, key, value); err != nil {
			return nil, SimulateOutput{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("parameters out of range: %w", err)
	}

	series := p.Run()
	result := analysis.Analyze(series, p.Initial())

	s.trace.Log(map[string]any{
		"event":    "simulate",
		"source":   "mcp",
		"steps":    p.Steps,
		"balanced": result.Insights.Balanced,
	})

	out := SimulateOutput{
		Params:      p,
		Summary:     result.Summary,
		Insights:    result.Insights,
		Correlation: result.Correlation,
		Message:     simulateMessage(result.Insights),
	}
	if args.IncludeSeries {
		out.Series = &series
	}
	return nil, out, nil
}

func simulateMessage(r analysis.Report) string {
	if r.Balanced {
		return fmt.Sprintf("%d steps: %s", r.Steps, r.Headline)
	}
	declined := lo.FilterMap(r.Verdicts, func(v analysis.Verdict, _ int) (string, bool) {
		return string(v.Species), !v.Thrived
	})
	return fmt.Sprintf("%d steps: %s Declined: %s", r.Steps, r.Headline, strings.Join(declined, ", "))
}

// handleAsk implements the ecosim_ask tool.
func (s *Server) handleAsk(ctx context.Context, req *sdk.CallToolRequest, args AskInput) (_ *sdk.CallToolResult, _ AskOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolAsk, start, retErr, sanitizeToolParams(map[string]interface{}{
			"question": args.Question,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolAsk); err != nil {
		return nil, AskOutput{}, err
	}
	if s.assistant == nil {
		return nil, AskOutput{}, fmt.Errorf("assistant is not configured")
	}

	ans, err := s.assistant.Ask(ctx, args.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Answer: ans.Text, Provider: ans.Provider, Tip: ans.Tip}, nil
}

// handleTips implements the ecosim_tips tool.
func (s *Server) handleTips(ctx context.Context, req *sdk.CallToolRequest, args TipsInput) (_ *sdk.CallToolResult, _ TipsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolTips, start, retErr, sanitizeToolParams(map[string]interface{}{
			"species": content.NormalizeSpecies(args.Species),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolTips); err != nil {
		return nil, TipsOutput{}, err
	}

	if strings.TrimSpace(args.Species) == "" {
		available := s.library.Species()
		return nil, TipsOutput{
			Available: available,
			Message:   fmt.Sprintf("%d species have conservation guides", len(available)),
		}, nil
	}

	guide, ok := s.library.Tips(args.Species)
	if !ok {
		return nil, TipsOutput{
			Available: s.library.Species(),
			Message:   content.NoGuideMessage,
		}, nil
	}

	return nil, TipsOutput{
		Species:    guide.Name,
		Strategies: guide.Strategies,
		Message:    guide.Heading(),
	}, nil
}

// handleQuiz implements the ecosim_quiz tool.
func (s *Server) handleQuiz(ctx context.Context, req *sdk.CallToolRequest, args QuizInput) (_ *sdk.CallToolResult, _ QuizOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolQuiz, start, retErr, sanitizeToolParams(map[string]interface{}{
			"question": args.Question, "answer": args.Answer,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolQuiz); err != nil {
		return nil, QuizOutput{}, err
	}

	if strings.TrimSpace(args.Question) == "" {
		questions := s.library.Questions()
		items := make([]QuizQuestion, len(questions))
		for i, q := range questions {
			items[i] = QuizQuestion{Index: i + 1, Question: q.Text, Options: q.Options}
		}
		score, err := s.store.QuizScore(ctx)
		if err != nil {
			return nil, QuizOutput{}, fmt.Errorf("failed to load score: %w", err)
		}
		return nil, QuizOutput{
			Questions: items,
			Score:     score,
			Message:   fmt.Sprintf("%d questions. Answer one with the question number and an option.", len(items)),
		}, nil
	}

	if strings.TrimSpace(args.Answer) == "" {
		return nil, QuizOutput{}, fmt.Errorf("'answer' parameter is required when 'question' is set")
	}

	res, err := s.library.Check(args.Question, args.Answer)
	if err != nil {
		return nil, QuizOutput{}, err
	}

	if _, err := s.store.RecordQuizAttempt(ctx, store.QuizAttempt{
		Question: res.Question, Answer: res.Given, Correct: res.Correct,
	}); err != nil {
		return nil, QuizOutput{}, fmt.Errorf("failed to record attempt: %w", err)
	}
	score, err := s.store.QuizScore(ctx)
	if err != nil {
		return nil, QuizOutput{}, fmt.Errorf("failed to load score: %w", err)
	}

	s.trace.Log(map[string]any{"event": "quiz_answer", "source": "mcp", "question": res.Question, "correct": res.Correct})

	return nil, QuizOutput{Result: &res, Score: score, Message: res.Message()}, nil
}

// handleFeedback implements the ecosim_feedback tool.
func (s *Server) handleFeedback(ctx context.Context, req *sdk.CallToolRequest, args FeedbackInput) (_ *sdk.CallToolResult, _ FeedbackOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolFeedback, start, retErr, sanitizeToolParams(map[string]interface{}{
			"message": args.Message,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolFeedback); err != nil {
		return nil, FeedbackOutput{}, err
	}

	fb, err := s.store.AddFeedback(ctx, sanitize.Feedback(args.Message))
	if errors.Is(err, store.ErrInvalid) {
		return nil, FeedbackOutput{}, fmt.Errorf("'message' parameter is required")
	}
	if err != nil {
		return nil, FeedbackOutput{}, fmt.Errorf("failed to store feedback: %w", err)
	}

	return nil, FeedbackOutput{ID: fb.ID, Message: content.FeedbackThanks}, nil
}

// backupPath resolves a tool-supplied file name against the backups directory.
func (s *Server) backupPath(name string) (string, error) {
	if s.backupDir == "" {
		return "", fmt.Errorf("backups are not configured")
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(s.backupDir, name)
	}
	return backup.ResolvePath(name, []string{s.backupDir})
}

// handleBackup implements the ecosim_backup tool.
func (s *Server) handleBackup(ctx context.Context, req *sdk.CallToolRequest, args BackupInput) (_ *sdk.CallToolResult, _ BackupOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolBackup, start, retErr, sanitizeToolParams(map[string]interface{}{
			"output": args.Output,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolBackup); err != nil {
		return nil, BackupOutput{}, err
	}
	if s.backupDir == "" {
		return nil, BackupOutput{}, fmt.Errorf("backups are not configured")
	}

	outputPath := backup.GeneratePath(s.backupDir, s.compress)
	if args.Output != "" {
		resolved, err := s.backupPath(args.Output)
		if err != nil {
			return nil, BackupOutput{}, err
		}
		outputPath = resolved
	}

	archive, err := backup.Backup(ctx, s.store, outputPath, s.compress)
	if err != nil {
		return nil, BackupOutput{}, fmt.Errorf("backup failed: %w", err)
	}

	if _, err := backup.ApplyRetention(filepath.Dir(outputPath), s.retention); err != nil {
		s.logger.Warn("backup retention failed", "error", err)
	}

	var sizeBytes int64
	if info, err := os.Stat(outputPath); err == nil {
		sizeBytes = info.Size()
	}

	h := archive.History
	return nil, BackupOutput{
		Path:          outputPath,
		Version:       archive.Version,
		Compressed:    archive.Version == backup.FormatV2,
		SizeBytes:     sizeBytes,
		FeedbackCount: len(h.Feedback),
		AttemptCount:  len(h.QuizAttempts),
		ScenarioCount: len(h.Scenarios),
		Message: fmt.Sprintf("Backup created: %d feedback, %d quiz attempts, %d scenarios -> %s",
			len(h.Feedback), len(h.QuizAttempts), len(h.Scenarios), filepath.Base(outputPath)),
	}, nil
}

// handleRestore implements the ecosim_restore tool.
func (s *Server) handleRestore(ctx context.Context, req *sdk.CallToolRequest, args RestoreInput) (_ *sdk.CallToolResult, _ RestoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolRestore, start, retErr, sanitizeToolParams(map[string]interface{}{
			"input": args.Input, "mode": args.Mode,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolRestore); err != nil {
		return nil, RestoreOutput{}, err
	}

	if strings.TrimSpace(args.Input) == "" {
		return nil, RestoreOutput{}, fmt.Errorf("'input' parameter is required")
	}
	mode, err := store.ParseRestoreMode(args.Mode)
	if err != nil {
		return nil, RestoreOutput{}, err
	}
	inputPath, err := s.backupPath(args.Input)
	if err != nil {
		return nil, RestoreOutput{}, err
	}

	result, err := backup.Restore(ctx, s.store, inputPath, mode)
	if err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("restore failed: %w", err)
	}

	s.trace.Log(map[string]any{"event": "restore", "source": "mcp", "mode": string(mode), "result": result})

	return nil, RestoreOutput{
		Result: *result,
		Mode:   mode,
		Message: fmt.Sprintf("Restore complete: %d feedback, %d quiz attempts, %d scenarios restored",
			result.FeedbackRestored, result.AttemptsRestored, result.ScenariosRestored),
	}, nil
}
