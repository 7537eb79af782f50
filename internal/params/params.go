// Package params describes the user-facing simulation inputs: their ranges,
// defaults and validation. The simulator itself never validates; callers
// run Validate or Clamp here before handing values to package ecosystem.
package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/ecosim/internal/ecosystem"
	"github.com/samber/lo"
)

// Parameters is a complete set of inputs for one simulation run.
type Parameters struct {
	// Rates
	PlantGrowthRate    float64 `json:"plant_growth_rate" yaml:"plant_growth_rate"`
	HerbivoreBirthRate float64 `json:"herbivore_birth_rate" yaml:"herbivore_birth_rate"`
	PredatorBirthRate  float64 `json:"predator_birth_rate" yaml:"predator_birth_rate"`

	// Initial populations
	InitialPlants     float64 `json:"initial_plants" yaml:"initial_plants"`
	InitialHerbivores float64 `json:"initial_herbivores" yaml:"initial_herbivores"`
	InitialPredators  float64 `json:"initial_predators" yaml:"initial_predators"`

	// Steps is the number of ticks to simulate.
	Steps int `json:"steps" yaml:"steps"`

	// Abiotic factors
	WaterAvailability    float64 `json:"water_availability" yaml:"water_availability"`
	TemperatureVariation float64 `json:"temperature_variation" yaml:"temperature_variation"`
	SoilQuality          float64 `json:"soil_quality" yaml:"soil_quality"`
	HumanImpact          float64 `json:"human_impact" yaml:"human_impact"`

	// Dynamic factors. These are recorded with a run but do not enter the
	// population recurrence.
	PollutionLevel    float64 `json:"pollution_level" yaml:"pollution_level"`
	NaturalDisasters  int     `json:"natural_disasters" yaml:"natural_disasters"`
	SeasonalVariation float64 `json:"seasonal_variation" yaml:"seasonal_variation"`
	DiseaseOutbreak   float64 `json:"disease_outbreak" yaml:"disease_outbreak"`
}

// Range describes the accepted interval and default of one parameter.
type Range struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Group   string  `json:"group"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Integer bool    `json:"integer,omitempty"`
	Help    string  `json:"help"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// RangeError reports a parameter outside its range.
type RangeError struct {
	Key   string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s must be between %g and %g, got %g", e.Key, e.Min, e.Max, e.Value)
}

// ErrUnknownKey is returned by Get and Set for an unrecognised parameter name.
var ErrUnknownKey = errors.New("unknown parameter")

type field struct {
	Range
	get func(p *Parameters) float64
	set func(p *Parameters, v float64)
}

var fields = []field{
	{
		Range: Range{Key: "plant_growth_rate", Label: "Plant Growth Rate", Group: "ecosystem",
			Min: 0.01, Max: 0.5, Default: 0.2, Help: "Controls how quickly plants regenerate."},
		get: func(p *Parameters) float64 { return p.PlantGrowthRate },
		set: func(p *Parameters, v float64) { p.PlantGrowthRate = v },
	},
	{
		Range: Range{Key: "herbivore_birth_rate", Label: "Herbivore Birth Rate", Group: "ecosystem",
			Min: 0.01, Max: 0.3, Default: 0.1, Help: "Rate at which herbivores reproduce."},
		get: func(p *Parameters) float64 { return p.HerbivoreBirthRate },
		set: func(p *Parameters, v float64) { p.HerbivoreBirthRate = v },
	},
	{
		Range: Range{Key: "predator_birth_rate", Label: "Predator Birth Rate", Group: "ecosystem",
			Min: 0.01, Max: 0.2, Default: 0.05, Help: "Rate at which predators reproduce."},
		get: func(p *Parameters) float64 { return p.PredatorBirthRate },
		set: func(p *Parameters, v float64) { p.PredatorBirthRate = v },
	},
	{
		Range: Range{Key: "initial_plants", Label: "Initial Plant Population", Group: "population",
			Min: 50, Max: 500, Default: 100, Integer: true, Help: "Starting number of plants in the ecosystem."},
		get: func(p *Parameters) float64 { return p.InitialPlants },
		set: func(p *Parameters, v float64) { p.InitialPlants = v },
	},
	{
		Range: Range{Key: "initial_herbivores", Label: "Initial Herbivore Population", Group: "population",
			Min: 10, Max: 100, Default: 30, Integer: true, Help: "Starting number of herbivores."},
		get: func(p *Parameters) float64 { return p.InitialHerbivores },
		set: func(p *Parameters, v float64) { p.InitialHerbivores = v },
	},
	{
		Range: Range{Key: "initial_predators", Label: "Initial Predator Population", Group: "population",
			Min: 5, Max: 50, Default: 10, Integer: true, Help: "Starting number of predators."},
		get: func(p *Parameters) float64 { return p.InitialPredators },
		set: func(p *Parameters, v float64) { p.InitialPredators = v },
	},
	{
		Range: Range{Key: "steps", Label: "Simulation Duration (Steps)", Group: "control",
			Min: 10, Max: 200, Default: 50, Integer: true, Help: "Number of time steps the simulation will run."},
		get: func(p *Parameters) float64 { return float64(p.Steps) },
		set: func(p *Parameters, v float64) { p.Steps = int(math.Round(v)) },
	},
	{
		Range: Range{Key: "water_availability", Label: "Water Availability", Group: "abiotic",
			Min: 0, Max: 1, Default: 0.5, Help: "Amount of water available in the ecosystem."},
		get: func(p *Parameters) float64 { return p.WaterAvailability },
		set: func(p *Parameters, v float64) { p.WaterAvailability = v },
	},
	{
		Range: Range{Key: "temperature_variation", Label: "Temperature Variation (°C)", Group: "abiotic",
			Min: -10, Max: 40, Default: 25, Integer: true, Help: "Range of temperature fluctuations."},
		get: func(p *Parameters) float64 { return p.TemperatureVariation },
		set: func(p *Parameters, v float64) { p.TemperatureVariation = v },
	},
	{
		Range: Range{Key: "soil_quality", Label: "Soil Quality Index", Group: "abiotic",
			Min: 0.1, Max: 1, Default: 0.7, Help: "Quality of soil affecting plant growth."},
		get: func(p *Parameters) float64 { return p.SoilQuality },
		set: func(p *Parameters, v float64) { p.SoilQuality = v },
	},
	{
		Range: Range{Key: "human_impact", Label: "Human Impact Factor", Group: "human",
			Min: 0, Max: 1, Default: 0.2, Help: "Influence of human activities on the ecosystem."},
		get: func(p *Parameters) float64 { return p.HumanImpact },
		set: func(p *Parameters, v float64) { p.HumanImpact = v },
	},
	{
		Range: Range{Key: "pollution_level", Label: "Pollution Level", Group: "human",
			Min: 0, Max: 1, Default: 0.3, Help: "Amount of pollution affecting the environment."},
		get: func(p *Parameters) float64 { return p.PollutionLevel },
		set: func(p *Parameters, v float64) { p.PollutionLevel = v },
	},
	{
		Range: Range{Key: "natural_disasters", Label: "Frequency of Natural Disasters", Group: "human",
			Min: 0, Max: 10, Default: 2, Integer: true, Help: "Number of natural disasters occurring in the simulation."},
		get: func(p *Parameters) float64 { return float64(p.NaturalDisasters) },
		set: func(p *Parameters, v float64) { p.NaturalDisasters = int(math.Round(v)) },
	},
	{
		Range: Range{Key: "seasonal_variation", Label: "Seasonal Variation Impact", Group: "dynamic",
			Min: 0, Max: 1, Default: 0.5, Help: "Effect of seasonal changes on population dynamics."},
		get: func(p *Parameters) float64 { return p.SeasonalVariation },
		set: func(p *Parameters, v float64) { p.SeasonalVariation = v },
	},
	{
		Range: Range{Key: "disease_outbreak", Label: "Disease Outbreak Probability", Group: "dynamic",
			Min: 0, Max: 1, Default: 0.2, Help: "Chance of a disease affecting the population."},
		get: func(p *Parameters) float64 { return p.DiseaseOutbreak },
		set: func(p *Parameters, v float64) { p.DiseaseOutbreak = v },
	},
}

var fieldsByKey = lo.KeyBy(fields, func(f field) string { return f.Key })

// Default returns the parameter set every range defaults to.
func Default() Parameters {
	var p Parameters
	for _, f := range fields {
		f.set(&p, f.Default)
	}
	return p
}

// Bounds returns the range table in display order.
func Bounds() []Range {
	return lo.Map(fields, func(f field, _ int) Range { return f.Range })
}

// Keys returns every parameter name in display order.
func Keys() []string {
	return lo.Map(fields, func(f field, _ int) string { return f.Key })
}

// Validate reports every parameter outside its range. The returned error
// wraps one *RangeError per offending field.
func (p Parameters) Validate() error {
	var errs []error
	for _, f := range fields {
		v := f.get(&p)
		if !f.Contains(v) {
			errs = append(errs, &RangeError{Key: f.Key, Value: v, Min: f.Min, Max: f.Max})
		}
	}
	return errors.Join(errs...)
}

// Clamp returns a copy with every parameter forced into its range.
// NaN values are replaced by the default.
func (p Parameters) Clamp() Parameters {
	out := p
	for _, f := range fields {
		v := f.get(&out)
		if math.IsNaN(v) {
			v = f.Default
		}
		f.set(&out, lo.Clamp(v, f.Min, f.Max))
	}
	return out
}

// SimulationConfig extracts the coefficients used by the recurrence.
func (p Parameters) SimulationConfig() ecosystem.SimulationConfig {
	return ecosystem.SimulationConfig{
		PlantGrowthRate:      p.PlantGrowthRate,
		HerbivoreBirthRate:   p.HerbivoreBirthRate,
		PredatorBirthRate:    p.PredatorBirthRate,
		WaterAvailability:    p.WaterAvailability,
		TemperatureVariation: p.TemperatureVariation,
		SoilQuality:          p.SoilQuality,
		HumanImpact:          p.HumanImpact,
	}
}

// Initial extracts the starting populations.
func (p Parameters) Initial() ecosystem.PopulationState {
	return ecosystem.PopulationState{
		Plants:     p.InitialPlants,
		Herbivores: p.InitialHerbivores,
		Predators:  p.InitialPredators,
	}
}

// Run simulates with these parameters. It does not validate.
func (p Parameters) Run() ecosystem.PopulationSeries {
	return ecosystem.Simulate(p.Initial(), p.Steps, p.SimulationConfig())
}

// Get returns the value of the named parameter.
func Get(p Parameters, key string) (float64, error) {
	f, ok := fieldsByKey[normalizeKey(key)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(&p), nil
}

// Set parses value and assigns it to the named parameter. The value is not
// range-checked; call Validate afterwards.
func Set(p *Parameters, key, value string) error {
	f, ok := fieldsByKey[normalizeKey(key)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", f.Key, err)
	}
	f.set(p, v)
	return nil
}

// Lookup returns the range for the named parameter.
func Lookup(key string) (Range, bool) {
	f, ok := fieldsByKey[normalizeKey(key)]
	return f.Range, ok
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}
