package analysis

import "github.com/samber/lo"

// DefaultBins is the number of histogram bins used when none is given.
const DefaultBins = 20

// Bin is one equal-width histogram bucket covering [Lower, Upper).
// The last bin also includes its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram distributes values into equal-width bins between their minimum
// and maximum. It returns nil for empty input; a constant series yields a
// single bin holding every value.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	low, high := lo.Min(values), lo.Max(values)
	if low == high {
		return []Bin{{Lower: low, Upper: high, Count: len(values)}}
	}

	width := (high - low) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = low + float64(i)*width
		out[i].Upper = low + float64(i+1)*width
	}
	out[bins-1].Upper = high

	for _, v := range values {
		i := int((v - low) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
