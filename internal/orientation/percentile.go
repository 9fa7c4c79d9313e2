package orientation

import (
	"math"
	"slices"
)

// SelectPercentile returns the sample at percentile p of the grid's sorted intensities.
//
// All samples are sorted ascending and the value at index floor(N*p) is returned,
// so the result is always an intensity that occurs in the grid. p = 0 yields the
// minimum. p must lie in [0, 1); p = 1 would index one past the last sample.
func SelectPercentile(g Grid, p float64) (uint8, error) {
	if math.IsNaN(p) || p < 0 || p >= 1 {
		return 0, ErrPercentileRange
	}

	vals := samples(g)
	if len(vals) == 0 {
		return 0, ErrEmptyGrid
	}
	slices.Sort(vals)

	return vals[int(float64(len(vals))*p)], nil
}
