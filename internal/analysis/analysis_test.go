package analysis

import (
	"math"
	"testing"

	"github.com/nvandessel/ecosim/internal/ecosystem"
)

func series(plants, herbivores, predators []float64) ecosystem.PopulationSeries {
	return ecosystem.PopulationSeries{Plants: plants, Herbivores: herbivores, Predators: predators}
}

func TestSummarize(t *testing.T) {
	s := series(
		[]float64{1, 2, 3, 4},
		[]float64{10, 10, 10, 10},
		[]float64{4, 3, 2, 1},
	)
	sum := Summarize(s)

	if sum.Steps != 4 {
		t.Errorf("Steps = %d, want 4", sum.Steps)
	}
	if sum.Plants.Mean != 2.5 || sum.Plants.Min != 1 || sum.Plants.Max != 4 || sum.Plants.Final != 4 {
		t.Errorf("Plants = %+v", sum.Plants)
	}
	if sum.Herbivores.StdDev != 0 {
		t.Errorf("constant series StdDev = %v, want 0", sum.Herbivores.StdDev)
	}
	wantSD := math.Sqrt(1.25)
	if math.Abs(sum.Predators.StdDev-wantSD) > 1e-12 {
		t.Errorf("Predators.StdDev = %v, want %v", sum.Predators.StdDev, wantSD)
	}
	if sum.For(Predators).Final != 1 {
		t.Errorf("For(Predators).Final = %v, want 1", sum.For(Predators).Final)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(ecosystem.SimulateCounts(100, 30, 10, 0, ecosystem.SimulationConfig{}))
	if sum.Steps != 0 || sum.Plants != (Stats{}) {
		t.Errorf("empty Summarize = %+v", sum)
	}
}

func TestInsights(t *testing.T) {
	initial := ecosystem.PopulationState{Plants: 2, Herbivores: 10, Predators: 1}

	tests := []struct {
		name         string
		s            ecosystem.PopulationSeries
		wantThrived  []bool
		wantBalanced bool
	}{
		{
			name:         "all thrive",
			s:            series([]float64{3, 4}, []float64{11, 12}, []float64{2, 3}),
			wantThrived:  []bool{true, true, true},
			wantBalanced: true,
		},
		{
			name:         "equal mean counts as declined",
			s:            series([]float64{3, 4}, []float64{10, 10}, []float64{2, 3}),
			wantThrived:  []bool{true, false, true},
			wantBalanced: false,
		},
		{
			name:         "all decline",
			s:            series([]float64{1, 0}, []float64{5, 0}, []float64{0, 0}),
			wantThrived:  []bool{false, false, false},
			wantBalanced: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Insights(Summarize(tt.s), initial)
			if r.Balanced != tt.wantBalanced {
				t.Errorf("Balanced = %v, want %v", r.Balanced, tt.wantBalanced)
			}
			if len(r.Verdicts) != 3 {
				t.Fatalf("len(Verdicts) = %d, want 3", len(r.Verdicts))
			}
			for i, v := range r.Verdicts {
				if v.Species != AllSpecies[i] {
					t.Errorf("verdict %d species = %s, want %s", i, v.Species, AllSpecies[i])
				}
				if v.Thrived != tt.wantThrived[i] {
					t.Errorf("%s thrived = %v, want %v", v.Species, v.Thrived, tt.wantThrived[i])
				}
				if v.Headline == "" || v.Detail == "" {
					t.Errorf("%s missing narrative", v.Species)
				}
			}
			if tt.wantBalanced && r.Headline != balancedHeadline {
				t.Errorf("Headline = %q", r.Headline)
			}
			if !tt.wantBalanced && r.Headline != unbalancedHeadline {
				t.Errorf("Headline = %q", r.Headline)
			}
		})
	}
}

func TestInsights_Empty(t *testing.T) {
	r := Insights(Summary{}, ecosystem.PopulationState{Plants: 1})
	if r.Balanced || r.Verdicts != nil {
		t.Errorf("empty Insights = %+v", r)
	}
}

func TestCorrelation(t *testing.T) {
	s := series(
		[]float64{1, 2, 3, 4},
		[]float64{2, 4, 6, 8},
		[]float64{4, 3, 2, 1},
	)
	m := Correlation(s)

	for _, sp := range AllSpecies {
		if m.Get(sp, sp) != 1 {
			t.Errorf("diagonal %s = %v, want 1", sp, m.Get(sp, sp))
		}
	}
	if math.Abs(m.Get(Plants, Herbivores)-1) > 1e-12 {
		t.Errorf("plants/herbivores = %v, want 1", m.Get(Plants, Herbivores))
	}
	if math.Abs(m.Get(Plants, Predators)+1) > 1e-12 {
		t.Errorf("plants/predators = %v, want -1", m.Get(Plants, Predators))
	}
	if m.Get(Predators, Plants) != m.Get(Plants, Predators) {
		t.Error("matrix not symmetric")
	}
}

func TestCorrelation_ConstantSeries(t *testing.T) {
	s := series([]float64{1, 2, 3}, []float64{5, 5, 5}, []float64{0, 0, 0})
	m := Correlation(s)
	if m.Get(Plants, Herbivores) != 0 || m.Get(Herbivores, Predators) != 0 {
		t.Errorf("constant-series correlations = %v", m)
	}
}

func TestHistogram(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	bins := Histogram(values, 5)

	if len(bins) != 5 {
		t.Fatalf("len(bins) = %d, want 5", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != len(values) {
		t.Errorf("total count = %d, want %d", total, len(values))
	}
	if bins[0].Lower != 0 || bins[4].Upper != 10 {
		t.Errorf("edges = [%v, %v], want [0, 10]", bins[0].Lower, bins[4].Upper)
	}
	// The maximum lands in the last bin.
	if bins[4].Count != 3 {
		t.Errorf("last bin count = %d, want 3 (8, 9, 10)", bins[4].Count)
	}
}

func TestHistogram_EdgeCases(t *testing.T) {
	if got := Histogram(nil, 10); got != nil {
		t.Errorf("Histogram(nil) = %v, want nil", got)
	}
	constant := Histogram([]float64{7, 7, 7}, 10)
	if len(constant) != 1 || constant[0].Count != 3 {
		t.Errorf("constant Histogram = %+v", constant)
	}
	if got := Histogram([]float64{1, 2}, 0); len(got) != DefaultBins {
		t.Errorf("bins<=0 gave %d bins, want %d", len(got), DefaultBins)
	}
}

func TestProportions(t *testing.T) {
	s := series([]float64{2, 0}, []float64{1, 0}, []float64{1, 0})
	p := Proportions(s)
	if p[0] != [3]float64{0.5, 0.25, 0.25} {
		t.Errorf("tick 0 = %v", p[0])
	}
	if p[1] != [3]float64{} {
		t.Errorf("all-zero tick = %v, want zeros", p[1])
	}
}

func TestValues(t *testing.T) {
	s := series([]float64{1}, []float64{2}, []float64{3})
	if Values(s, Herbivores)[0] != 2 {
		t.Error("Values(Herbivores) wrong")
	}
	if Values(s, Species("fungi")) != nil {
		t.Error("unknown species should yield nil")
	}
}

func TestSpeciesTitle(t *testing.T) {
	want := []string{"Plants", "Herbivores", "Predators"}
	for i, sp := range AllSpecies {
		if got := sp.Title(); got != want[i] {
			t.Errorf("%s.Title() = %q, want %q", sp, got, want[i])
		}
	}
}
