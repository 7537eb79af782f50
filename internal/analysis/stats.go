// Package analysis derives summary statistics and narrative insights from a
// finished population series. It never runs inside the simulator.
package analysis

import (
	"math"

	"github.com/nvandessel/ecosim/internal/ecosystem"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Species names a population in a series.
type Species string

const (
	Plants     Species = "plants"
	Herbivores Species = "herbivores"
	Predators  Species = "predators"
)

// Title returns the display name, e.g. "Herbivores".
func (s Species) Title() string {
	return cases.Title(language.English).String(string(s))
}

// AllSpecies lists species in series order.
var AllSpecies = []Species{Plants, Herbivores, Predators}

// Values returns the series for one species.
func Values(series ecosystem.PopulationSeries, sp Species) []float64 {
	switch sp {
	case Plants:
		return series.Plants
	case Herbivores:
		return series.Herbivores
	case Predators:
		return series.Predators
	default:
		return nil
	}
}

// Stats summarises one species' series. All fields are zero for an empty series.
type Stats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Final  float64 `json:"final"`
	StdDev float64 `json:"std_dev"`
}

// Summary holds Stats for every species plus the run length.
type Summary struct {
	Steps      int   `json:"steps"`
	Plants     Stats `json:"plants"`
	Herbivores Stats `json:"herbivores"`
	Predators  Stats `json:"predators"`
}

// For returns the Stats of one species.
func (s Summary) For(sp Species) Stats {
	switch sp {
	case Plants:
		return s.Plants
	case Herbivores:
		return s.Herbivores
	default:
		return s.Predators
	}
}

// Summarize computes per-species statistics.
func Summarize(series ecosystem.PopulationSeries) Summary {
	return Summary{
		Steps:      series.Len(),
		Plants:     describe(series.Plants),
		Herbivores: describe(series.Herbivores),
		Predators:  describe(series.Predators),
	}
}

func describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	m := mean(values)
	variance := lo.SumBy(values, func(v float64) float64 { return (v - m) * (v - m) }) / float64(len(values))
	return Stats{
		Mean:   m,
		Min:    lo.Min(values),
		Max:    lo.Max(values),
		Final:  values[len(values)-1],
		StdDev: math.Sqrt(variance),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return lo.Sum(values) / float64(len(values))
}

// Proportions returns each species' share of the total population per tick.
// Ticks where every population is zero yield {0, 0, 0}.
func Proportions(series ecosystem.PopulationSeries) [][3]float64 {
	out := make([][3]float64, series.Len())
	for i := range out {
		st := series.At(i)
		total := st.Plants + st.Herbivores + st.Predators
		if total == 0 {
			continue
		}
		out[i] = [3]float64{st.Plants / total, st.Herbivores / total, st.Predators / total}
	}
	return out
}
