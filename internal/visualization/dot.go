// Package visualization renders simulation results as Graphviz food-chain
// diagrams.
package visualization

import (
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/ecosim/internal/analysis"
)

// verdictColors maps the thrived/declined verdict to DOT fill colors.
var verdictColors = map[bool]string{
	true:  "mediumseagreen",
	false: "tomato",
}

// trophicLinks are the food-chain edges: prey first.
var trophicLinks = [][2]analysis.Species{
	{analysis.Plants, analysis.Herbivores},
	{analysis.Herbivores, analysis.Predators},
}

// RenderDOT produces a Graphviz DOT food chain for one analysed run. Nodes
// show each species' final population and verdict; edges carry the Pearson
// correlation between prey and consumer, dashed when negative.
func RenderDOT(result analysis.Result) string {
	var b strings.Builder
	b.WriteString("digraph ecosim {\n")
	b.WriteString("  rankdir=BT;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")
	fmt.Fprintf(&b, "  label=%q;\n  labelloc=t;\n\n", truncate(result.Insights.Headline, 60))

	thrived := make(map[analysis.Species]bool, len(result.Insights.Verdicts))
	for _, v := range result.Insights.Verdicts {
		thrived[v.Species] = v.Thrived
	}

	for _, sp := range analysis.AllSpecies {
		st := result.Summary.For(sp)
		status := "declined"
		if thrived[sp] {
			status = "thrived"
		}
		label := fmt.Sprintf("%s\nfinal %.1f (mean %.1f)\n%s", sp.Title(), st.Final, st.Mean, status)
		fmt.Fprintf(&b, "  %q [label=%q, fillcolor=%q, tooltip=\"min=%.2f max=%.2f\"];\n",
			string(sp), label, verdictColors[thrived[sp]], st.Min, st.Max)
	}
	b.WriteString("\n")

	for _, link := range trophicLinks {
		r := result.Correlation.Get(link[0], link[1])
		style := "solid"
		if r < 0 {
			style = "dashed"
		}
		fmt.Fprintf(&b, "  %q -> %q [label=\"eaten by\\nr=%.2f\", style=%s, penwidth=%.1f];\n",
			string(link[0]), string(link[1]), r, style, 1+2*math.Abs(r))
	}

	b.WriteString("}\n")
	return b.String()
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
