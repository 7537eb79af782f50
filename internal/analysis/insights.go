package analysis

import "github.com/nvandessel/ecosim/internal/ecosystem"

// Verdict is the outcome for one species: whether its mean population over
// the run exceeded the starting value.
type Verdict struct {
	Species  Species `json:"species"`
	Initial  float64 `json:"initial"`
	Mean     float64 `json:"mean"`
	Thrived  bool    `json:"thrived"`
	Headline string  `json:"headline"`
	Detail   string  `json:"detail"`
}

// Report is the narrative summary shown after a run.
type Report struct {
	Steps    int       `json:"steps"`
	Verdicts []Verdict `json:"verdicts"`

	// Balanced is true only when every species thrived.
	Balanced bool   `json:"balanced"`
	Headline string `json:"headline"`
	Detail   string `json:"detail"`
}

type narrative struct {
	thrivedHeadline, thrivedDetail   string
	declinedHeadline, declinedDetail string
}

var narratives = map[Species]narrative{
	Plants: {
		thrivedHeadline:  "Plant Population Thrived!",
		thrivedDetail:    "The ecosystem provided favorable conditions for plant growth, leading to a steady or increasing plant population. Factors such as high water availability, fertile soil, and minimal human impact played a key role.",
		declinedHeadline: "Plant Population Declined!",
		declinedDetail:   "The plant population faced challenges such as overgrazing, harsh climate conditions, or human interference, leading to a decline over time.",
	},
	Herbivores: {
		thrivedHeadline:  "Herbivores Thrived!",
		thrivedDetail:    "An abundance of plant life ensured herbivores had plenty of food. The stable environment led to population growth, supporting a healthy ecosystem.",
		declinedHeadline: "Herbivore Population Declined!",
		declinedDetail:   "Scarcity of food, increased predation, or unsuitable environmental conditions led to a reduction in herbivore numbers, affecting the balance of the ecosystem.",
	},
	Predators: {
		thrivedHeadline:  "Predators Maintained a Healthy Population!",
		thrivedDetail:    "The presence of sufficient prey allowed predators to sustain or grow their population without major disruptions.",
		declinedHeadline: "Predators Faced Challenges!",
		declinedDetail:   "A decline in prey numbers, harsh conditions, or human activities may have impacted the predator population, leading to difficulties in survival.",
	},
}

const (
	balancedHeadline   = "Ecosystem in Balance!"
	balancedDetail     = "The ecosystem maintained stability, with all species coexisting in a sustainable manner. This indicates a healthy balance between food availability, reproduction, and natural cycles."
	unbalancedHeadline = "Ecosystem Instability Detected!"
	unbalancedDetail   = "Certain populations struggled to sustain themselves, possibly due to over-predation, food shortages, climate shifts, or human impact. Addressing these factors could improve biodiversity resilience."
)

// Insights compares each species' mean population against its initial value.
// An empty summary yields a nil Verdicts slice and an unbalanced report.
func Insights(summary Summary, initial ecosystem.PopulationState) Report {
	if summary.Steps == 0 {
		return Report{Headline: unbalancedHeadline, Detail: unbalancedDetail}
	}

	starts := map[Species]float64{
		Plants:     initial.Plants,
		Herbivores: initial.Herbivores,
		Predators:  initial.Predators,
	}

	report := Report{Steps: summary.Steps, Balanced: true}
	for _, sp := range AllSpecies {
		st := summary.For(sp)
		n := narratives[sp]
		v := Verdict{
			Species: sp,
			Initial: starts[sp],
			Mean:    st.Mean,
			Thrived: st.Mean > starts[sp],
		}
		if v.Thrived {
			v.Headline, v.Detail = n.thrivedHeadline, n.thrivedDetail
		} else {
			v.Headline, v.Detail = n.declinedHeadline, n.declinedDetail
			report.Balanced = false
		}
		report.Verdicts = append(report.Verdicts, v)
	}

	if report.Balanced {
		report.Headline, report.Detail = balancedHeadline, balancedDetail
	} else {
		report.Headline, report.Detail = unbalancedHeadline, unbalancedDetail
	}
	return report
}
