package ecosystem

// SimulationConfig holds the rate and environment coefficients for a run.
// It is passed by value and never modified by the simulator.
type SimulationConfig struct {
	PlantGrowthRate    float64 `json:"plant_growth_rate" yaml:"plant_growth_rate"`
	HerbivoreBirthRate float64 `json:"herbivore_birth_rate" yaml:"herbivore_birth_rate"`
	PredatorBirthRate  float64 `json:"predator_birth_rate" yaml:"predator_birth_rate"`

	// WaterAvailability boosts plant growth.
	WaterAvailability float64 `json:"water_availability" yaml:"water_availability"`

	// TemperatureVariation is in degrees Celsius and suppresses herbivore births.
	TemperatureVariation float64 `json:"temperature_variation" yaml:"temperature_variation"`

	// SoilQuality boosts herbivore births.
	SoilQuality float64 `json:"soil_quality" yaml:"soil_quality"`

	// HumanImpact suppresses plant growth.
	HumanImpact float64 `json:"human_impact" yaml:"human_impact"`
}

// PopulationState is the population of each species at one tick.
type PopulationState struct {
	Plants     float64 `json:"plants"`
	Herbivores float64 `json:"herbivores"`
	Predators  float64 `json:"predators"`
}

// PopulationSeries holds one value per tick for each species.
// All three slices always have the same length.
type PopulationSeries struct {
	Plants     []float64 `json:"plants"`
	Herbivores []float64 `json:"herbivores"`
	Predators  []float64 `json:"predators"`
}

// newSeries allocates an empty series with room for steps ticks.
func newSeries(steps int) PopulationSeries {
	if steps < 0 {
		steps = 0
	}
	return PopulationSeries{
		Plants:     make([]float64, 0, steps),
		Herbivores: make([]float64, 0, steps),
		Predators:  make([]float64, 0, steps),
	}
}

func (s *PopulationSeries) append(st PopulationState) {
	s.Plants = append(s.Plants, st.Plants)
	s.Herbivores = append(s.Herbivores, st.Herbivores)
	s.Predators = append(s.Predators, st.Predators)
}

// Len returns the number of ticks recorded.
func (s PopulationSeries) Len() int {
	return len(s.Plants)
}

// At returns the state recorded at tick i (0-based). It panics if i is out of range.
func (s PopulationSeries) At(i int) PopulationState {
	return PopulationState{
		Plants:     s.Plants[i],
		Herbivores: s.Herbivores[i],
		Predators:  s.Predators[i],
	}
}

// Final returns the last recorded state, or false for an empty series.
func (s PopulationSeries) Final() (PopulationState, bool) {
	if s.Len() == 0 {
		return PopulationState{}, false
	}
	return s.At(s.Len() - 1), true
}
