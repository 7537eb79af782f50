package visualization

import (
	"strings"
	"testing"

	"github.com/nvandessel/ecosim/internal/analysis"
	"github.com/nvandessel/ecosim/internal/params"
)

func analysed(t *testing.T, mutate func(p *params.Parameters)) analysis.Result {
	t.Helper()
	p := params.Default()
	if mutate != nil {
		mutate(&p)
	}
	return analysis.Analyze(p.Run(), p.Initial())
}

func TestRenderDOT_Structure(t *testing.T) {
	dot := RenderDOT(analysed(t, nil))

	if !strings.HasPrefix(dot, "digraph ecosim {\n") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("not a digraph:\n%s", dot)
	}
	for _, want := range []string{
		`"plants" [label="Plants\nfinal `,
		`"herbivores" [label="Herbivores\nfinal `,
		`"predators" [label="Predators\nfinal `,
		`"plants" -> "herbivores" [label="eaten by\nr=`,
		`"herbivores" -> "predators" [label="eaten by\nr=`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Count(dot, "->") != 2 {
		t.Errorf("edges = %d, want 2", strings.Count(dot, "->"))
	}
}

func TestRenderDOT_VerdictColors(t *testing.T) {
	result := analysed(t, nil)
	dot := RenderDOT(result)

	for _, v := range result.Insights.Verdicts {
		line := lineFor(dot, `"`+string(v.Species)+`" [`)
		if line == "" {
			t.Fatalf("no node line for %s", v.Species)
		}
		wantColor, wantStatus := "tomato", "declined"
		if v.Thrived {
			wantColor, wantStatus = "mediumseagreen", "thrived"
		}
		if !strings.Contains(line, `fillcolor="`+wantColor+`"`) || !strings.Contains(line, wantStatus) {
			t.Errorf("%s node = %s, want %s/%s", v.Species, line, wantColor, wantStatus)
		}
	}
}

func TestRenderDOT_EmptyRun(t *testing.T) {
	dot := RenderDOT(analysed(t, func(p *params.Parameters) { p.Steps = 0 }))

	// Zero-variance series correlate at 0, drawn solid.
	if !strings.Contains(dot, `r=0.00", style=solid, penwidth=1.0`) {
		t.Errorf("empty run edges:\n%s", dot)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a much longer headline", 10, "a much ..."},
		{"ééééééé", 5, "éé..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func lineFor(dot, prefix string) string {
	for _, line := range strings.Split(dot, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			return line
		}
	}
	return ""
}
