package ranking

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PeakWeights turns a net-rate-of-progress profile (one row per grid point, one column per
// reaction) into normalized importance weights. Each row is divided by its largest magnitude
// and a reaction's weight is its peak over all rows. Rows that are all zero are ignored.
func PeakWeights(rates [][]float64, reactions int) ([]float64, error) {
	peak := make([]float64, reactions)
	if reactions == 0 {
		return peak, nil
	}
	row := make([]float64, reactions)
	for p, point := range rates {
		if len(point) != reactions {
			return nil, fmt.Errorf("grid point %d has %d rates, want %d", p, len(point), reactions)
		}
		for i, v := range point {
			row[i] = math.Abs(v)
		}
		max := floats.Max(row)
		if max <= 0 || math.IsNaN(max) {
			continue
		}
		floats.Scale(1/max, row)
		for i, v := range row {
			peak[i] = math.Max(peak[i], v)
		}
	}
	return peak, nil
}

// Peak returns the largest value of a profile and the position where it occurs.
// It returns -1 for an empty profile.
func Peak(values []float64) (float64, int) {
	if len(values) == 0 {
		return 0, -1
	}
	i := floats.MaxIdx(values)
	return values[i], i
}
