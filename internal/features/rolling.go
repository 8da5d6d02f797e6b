package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// rollingStats holds the four relaxed rolling statistics for one window size.
type rollingStats struct {
	mean, std, min, max []float64
}

// trailingRolling computes mean, sample standard deviation, min and max over
// the trailing window of the last `window` positions ending at each row.
//
// Completeness is relaxed: NaN values inside the window are skipped, and a
// statistic is defined as soon as the window holds at least one observation
// (two for the standard deviation, which uses the n-1 denominator).
func trailingRolling(values []float64, window int) rollingStats {
	n := len(values)
	rs := rollingStats{
		mean: nanSlice(n),
		std:  nanSlice(n),
		min:  nanSlice(n),
		max:  nanSlice(n),
	}

	buf := make([]float64, 0, window)
	for i := 0; i < n; i++ {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}

		buf = buf[:0]
		for _, v := range values[lo : i+1] {
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			continue
		}

		rs.min[i] = floats.Min(buf)
		rs.max[i] = floats.Max(buf)
		if len(buf) < 2 {
			rs.mean[i] = buf[0]
			continue
		}
		rs.mean[i], rs.std[i] = stat.MeanStdDev(buf, nil)
	}

	return rs
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
