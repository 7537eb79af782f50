package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/ecosim/internal/assistant"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/llm"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/ratelimit"
	"github.com/nvandessel/ecosim/internal/store"
)

// setupTestServer builds a server over a memory store and a mock assistant.
func setupTestServer(t *testing.T) (*Server, *llm.MockClient) {
	t.Helper()

	mock := llm.NewMockClient().WithResponse("Predators keep herbivore numbers in check.")
	server, err := NewServer(&Config{
		Name:      "test-server",
		Version:   "v1.0.0",
		Dir:       t.TempDir(),
		Store:     store.NewMemoryStore(),
		Assistant: assistant.New(mock, nil, nil),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	// Generous limits so tests are not throttled.
	for name := range server.toolLimiters {
		server.toolLimiters[name] = ratelimit.NewLimiter(1000, 1000)
	}

	return server, mock
}

func TestHandleSimulate_Defaults(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	result, out, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}

	if out.Params != params.Default() {
		t.Errorf("Params = %+v, want defaults", out.Params)
	}
	if out.Summary.Steps != 50 || out.Insights.Steps != 50 {
		t.Errorf("steps = %d/%d, want 50", out.Summary.Steps, out.Insights.Steps)
	}
	if out.Series != nil {
		t.Error("Series should be omitted unless requested")
	}
	if !strings.HasPrefix(out.Message, "50 steps: ") {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestHandleSimulate_Overrides(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{
		Params:        map[string]float64{"steps": 12, "human_impact": 0.9},
		IncludeSeries: true,
	})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}

	if out.Params.Steps != 12 || out.Params.HumanImpact != 0.9 {
		t.Errorf("Params = %+v", out.Params)
	}
	if out.Series == nil || out.Series.Len() != 12 {
		t.Fatalf("Series = %+v, want 12 steps", out.Series)
	}

	want := out.Params.Run()
	final, _ := want.Final()
	got, _ := out.Series.Final()
	if got != final {
		t.Errorf("final state = %+v, want %+v", got, final)
	}
}

func TestHandleSimulate_Scenario(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	p := params.Default()
	p.Steps = 30
	p.WaterAvailability = 0.9
	if _, err := server.store.SaveScenario(ctx, "wet-season", p); err != nil {
		t.Fatalf("SaveScenario: %v", err)
	}

	_, out, err := server.handleSimulate(ctx, &sdk.CallToolRequest{}, SimulateInput{
		Scenario: "Wet Season",
		Params:   map[string]float64{"steps": 20},
	})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if out.Params.WaterAvailability != 0.9 {
		t.Errorf("water = %v, want scenario value 0.9", out.Params.WaterAvailability)
	}
	if out.Params.Steps != 20 {
		t.Errorf("steps = %d, override should win over scenario", out.Params.Steps)
	}

	if _, _, err := server.handleSimulate(ctx, &sdk.CallToolRequest{}, SimulateInput{Scenario: "missing"}); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestHandleSimulate_Invalid(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	tests := []struct {
		name      string
		overrides map[string]float64
		wantErr   error
	}{
		{"unknown key", map[string]float64{"wolves": 3}, params.ErrUnknownKey},
		{"out of range", map[string]float64{"plant_growth_rate": 5}, nil},
		{"too many steps", map[string]float64{"steps": 1000}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{Params: tt.overrides})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleAsk(t *testing.T) {
	server, mock := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleAsk(context.Background(), &sdk.CallToolRequest{}, AskInput{Question: "Why do predators matter?"})
	if err != nil {
		t.Fatalf("handleAsk failed: %v", err)
	}
	if out.Answer != "Predators keep herbivore numbers in check." {
		t.Errorf("Answer = %q", out.Answer)
	}
	if out.Provider != "mock" || out.Tip != content.AssistantTip {
		t.Errorf("output = %+v", out)
	}
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount())
	}

	if _, _, err := server.handleAsk(context.Background(), &sdk.CallToolRequest{}, AskInput{Question: "  "}); !errors.Is(err, assistant.ErrEmptyQuestion) {
		t.Errorf("empty question error = %v", err)
	}
}

func TestHandleAsk_NoAssistant(t *testing.T) {
	server, err := NewServer(&Config{Name: "test", Version: "v"})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	if _, _, err := server.handleAsk(context.Background(), &sdk.CallToolRequest{}, AskInput{Question: "hi"}); err == nil {
		t.Error("expected error without an assistant")
	}
}

func TestHandleTips(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	tests := []struct {
		name        string
		species     string
		wantSpecies string
		wantMessage string
	}{
		{"known", "coral reefs", "Coral Reefs", "Conservation Strategies for"},
		{"unknown", "Dodo", "", content.NoGuideMessage},
		{"empty lists", "", "", "10 species have conservation guides"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleTips(ctx, &sdk.CallToolRequest{}, TipsInput{Species: tt.species})
			if err != nil {
				t.Fatalf("handleTips failed: %v", err)
			}
			if out.Species != tt.wantSpecies {
				t.Errorf("Species = %q, want %q", out.Species, tt.wantSpecies)
			}
			if !strings.Contains(out.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want it to contain %q", out.Message, tt.wantMessage)
			}
			if tt.wantSpecies != "" && len(out.Strategies) == 0 {
				t.Error("expected strategies")
			}
		})
	}
}

func TestHandleQuiz(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	_, list, err := server.handleQuiz(ctx, &sdk.CallToolRequest{}, QuizInput{})
	if err != nil {
		t.Fatalf("list quiz: %v", err)
	}
	if len(list.Questions) != 5 || list.Score.Total != 0 {
		t.Fatalf("list = %+v", list)
	}

	q := server.library.Questions()[1]
	_, out, err := server.handleQuiz(ctx, &sdk.CallToolRequest{}, QuizInput{Question: "2", Answer: strings.ToUpper(q.Answer)})
	if err != nil {
		t.Fatalf("answer quiz: %v", err)
	}
	if out.Result == nil || !out.Result.Correct || out.Message != "Correct!" {
		t.Errorf("out = %+v", out)
	}
	if out.Score.Correct != 1 || out.Score.Total != 1 {
		t.Errorf("Score = %+v, want 1/1", out.Score)
	}

	if _, _, err := server.handleQuiz(ctx, &sdk.CallToolRequest{}, QuizInput{Question: "2"}); err == nil {
		t.Error("expected error for missing answer")
	}
	if _, _, err := server.handleQuiz(ctx, &sdk.CallToolRequest{}, QuizInput{Question: "9", Answer: "x"}); !errors.Is(err, content.ErrUnknownQuestion) {
		t.Errorf("unknown question error = %v", err)
	}
	if _, _, err := server.handleQuiz(ctx, &sdk.CallToolRequest{}, QuizInput{Question: "2", Answer: "not an option"}); !errors.Is(err, content.ErrUnknownOption) {
		t.Errorf("unknown option error = %v", err)
	}
}

func TestHandleFeedback(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	_, out, err := server.handleFeedback(ctx, &sdk.CallToolRequest{}, FeedbackInput{Message: "# Great tool\nMore species please"})
	if err != nil {
		t.Fatalf("handleFeedback failed: %v", err)
	}
	if out.Message != content.FeedbackThanks || out.ID == 0 {
		t.Errorf("out = %+v", out)
	}

	if _, _, err := server.handleFeedback(ctx, &sdk.CallToolRequest{}, FeedbackInput{Message: "  "}); err == nil {
		t.Error("expected error for empty feedback")
	}

	fb, err := server.store.ListFeedback(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fb) != 1 {
		t.Fatalf("stored %d feedback entries, want 1", len(fb))
	}
	if strings.Contains(fb[0].Message, "#") {
		t.Errorf("heading should be sanitized: %q", fb[0].Message)
	}
}

func TestToolRateLimit(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	server.toolLimiters[toolTips] = ratelimit.NewLimiter(0, 1)
	ctx := context.Background()

	if _, _, err := server.handleTips(ctx, &sdk.CallToolRequest{}, TipsInput{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, _, err := server.handleTips(ctx, &sdk.CallToolRequest{}, TipsInput{}); !errors.Is(err, ratelimit.ErrLimited) {
		t.Errorf("second call error = %v, want ErrLimited", err)
	}
}

func TestResources(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	res, err := server.handleResourcesResource(ctx, &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("resources: %v", err)
	}
	if got := res.Contents[0]; got.URI != resourcesURI || !strings.HasPrefix(got.Text, "# Educational Resources") {
		t.Errorf("resources content = %+v", got)
	}

	req := &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: tipsURIPrefix + "Blue%20Whale"}}
	tips, err := server.handleTipsResource(ctx, req)
	if err != nil {
		t.Fatalf("tips resource: %v", err)
	}
	if !strings.Contains(tips.Contents[0].Text, "Blue Whale") {
		t.Errorf("tips = %q", tips.Contents[0].Text)
	}

	req = &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: tipsURIPrefix + "Dodo"}}
	if _, err := server.handleTipsResource(ctx, req); err == nil {
		t.Error("expected not-found error for unknown species")
	}
}
