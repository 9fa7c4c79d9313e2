package orientation

import (
	"github.com/anthonynsimon/bild/histogram"
)

const histogramBins = 256

// Median returns the median intensity of g using a cumulative histogram scan.
//
// With m = (rows*cols)/2 (integer division), the median is the first bin whose
// cumulative count exceeds m. An empty grid has no such bin and yields -1.
func Median(g Grid) float64 {
	hist := intensityHistogram(g)
	m := (g.Rows() * g.Cols()) / 2

	cum := hist.Cumulative()
	for bin, count := range cum.Bins {
		if count > m {
			return float64(bin)
		}
	}
	return -1
}

func intensityHistogram(g Grid) *histogram.Histogram {
	h := &histogram.Histogram{Bins: make([]int, histogramBins)}
	for _, v := range samples(g) {
		h.Bins[v]++
	}
	return h
}
