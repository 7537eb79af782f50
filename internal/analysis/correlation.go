package analysis

import (
	"math"

	"github.com/nvandessel/ecosim/internal/ecosystem"
)

// Matrix is a symmetric species-by-species correlation matrix indexed in
// AllSpecies order.
type Matrix [3][3]float64

// Get returns the coefficient for a pair of species.
func (m Matrix) Get(a, b Species) float64 {
	return m[index(a)][index(b)]
}

func index(sp Species) int {
	for i, s := range AllSpecies {
		if s == sp {
			return i
		}
	}
	return 0
}

// Correlation computes Pearson coefficients between every pair of species.
// The diagonal is always 1. Pairs involving a constant series are 0.
func Correlation(series ecosystem.PopulationSeries) Matrix {
	cols := [3][]float64{series.Plants, series.Herbivores, series.Predators}

	var m Matrix
	for i := range cols {
		m[i][i] = 1
		for j := i + 1; j < len(cols); j++ {
			r := pearson(cols[i], cols[j])
			m[i][j] = r
			m[j][i] = r
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0
	}
	mx, my := mean(x), mean(y)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	// Rounding can push |r| just past 1.
	return math.Max(-1, math.Min(1, r))
}
