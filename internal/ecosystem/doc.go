// Package ecosystem implements the discrete-time plant/herbivore/predator
// population recurrence.
//
// Each tick updates the three populations in a fixed order. Plants and
// herbivores are computed from the previous tick's values; predators are
// computed from the herbivore value produced earlier in the same tick. Every
// value is floored at zero and no upper bound is applied, so favorable
// coefficients grow populations without limit.
//
// The simulator performs no validation and holds no state between calls.
// Callers constrain inputs beforehand (see package params).
//
// Usage:
//
//	cfg := ecosystem.SimulationConfig{PlantGrowthRate: 0.2, ...}
//	series := ecosystem.Simulate(ecosystem.PopulationState{Plants: 100, Herbivores: 30, Predators: 10}, 50, cfg)
//	last, _ := series.Final()
package ecosystem
