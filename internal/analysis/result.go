package analysis

import "github.com/nvandessel/ecosim/internal/ecosystem"

// Result bundles a finished series with every downstream view of it.
type Result struct {
	Initial       ecosystem.PopulationState  `json:"initial"`
	Series        ecosystem.PopulationSeries `json:"series"`
	Summary       Summary                    `json:"summary"`
	Insights      Report                     `json:"insights"`
	Correlation   Matrix                     `json:"correlation"`
	Proportions   [][3]float64               `json:"proportions"`
	Distributions map[Species][]Bin          `json:"distributions"`
}

// Analyze computes the summary, insights, correlation, proportions and
// DefaultBins histograms for series.
func Analyze(series ecosystem.PopulationSeries, initial ecosystem.PopulationState) Result {
	summary := Summarize(series)

	dist := make(map[Species][]Bin, len(AllSpecies))
	for _, sp := range AllSpecies {
		dist[sp] = Histogram(Values(series, sp), DefaultBins)
	}

	return Result{
		Initial:       initial,
		Series:        series,
		Summary:       summary,
		Insights:      Insights(summary, initial),
		Correlation:   Correlation(series),
		Proportions:   Proportions(series),
		Distributions: dist,
	}
}
