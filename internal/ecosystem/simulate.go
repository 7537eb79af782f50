package ecosystem

const (
	// GrazingPressure is the plant loss per herbivore per tick.
	GrazingPressure = 0.01

	// PredationPressure is the herbivore loss per predator per tick.
	PredationPressure = 0.01

	// HumanImpactWeight scales how strongly human impact suppresses plant growth.
	HumanImpactWeight = 0.1

	// TemperatureWeight scales how strongly temperature variation suppresses herbivore births.
	TemperatureWeight = 0.05
)

// Step advances the populations by one tick.
//
// The update is sequential: plants and herbivores use the incoming state,
// predators use the herbivore value computed in this same step.
func Step(s PopulationState, cfg SimulationConfig) PopulationState {
	plants := floor(s.Plants +
		s.Plants*cfg.PlantGrowthRate*(1+cfg.WaterAvailability-HumanImpactWeight*cfg.HumanImpact) -
		s.Herbivores*GrazingPressure)

	herbivores := floor(s.Herbivores +
		s.Herbivores*cfg.HerbivoreBirthRate*(1+cfg.SoilQuality-TemperatureWeight*cfg.TemperatureVariation) -
		s.Predators*PredationPressure)

	predators := floor(s.Predators +
		s.Predators*cfg.PredatorBirthRate*(herbivores/(herbivores+1)))

	return PopulationState{
		Plants:     plants,
		Herbivores: herbivores,
		Predators:  predators,
	}
}

// Simulate runs the recurrence for exactly steps ticks starting from initial
// and returns the state after each tick. The initial state itself is not
// recorded. steps <= 0 yields empty series.
func Simulate(initial PopulationState, steps int, cfg SimulationConfig) PopulationSeries {
	series := newSeries(steps)
	state := initial
	for t := 0; t < steps; t++ {
		state = Step(state, cfg)
		series.append(state)
	}
	return series
}

// SimulateCounts is Simulate with the initial populations given positionally.
func SimulateCounts(plants, herbivores, predators float64, steps int, cfg SimulationConfig) PopulationSeries {
	return Simulate(PopulationState{Plants: plants, Herbivores: herbivores, Predators: predators}, steps, cfg)
}

// floor clamps negative values to zero.
func floor(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
