package features

import "math"

// TrailingSlope computes, for every position i >= window-1, the least-squares
// slope of values[i-window+1..i] against the abscissa 0..window-1.
//
// The window is strict: positions before the window fills, and windows that
// contain any NaN, yield NaN. If window exceeds len(values) (or is below 2)
// the whole output is NaN.
func TrailingSlope(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 || window > n {
		return out
	}

	xMean := float64(window-1) / 2
	xVar := 0.0
	for x := 0; x < window; x++ {
		d := float64(x) - xMean
		xVar += d * d
	}

	for i := window - 1; i < n; i++ {
		win := values[i-window+1 : i+1]

		sum := 0.0
		flat := true
		for _, y := range win {
			sum += y
			if y != win[0] {
				flat = false
			}
		}
		yMean := sum / float64(window)
		if math.IsNaN(yMean) {
			continue
		}
		if flat {
			out[i] = 0
			continue
		}

		cov := 0.0
		for x, y := range win {
			cov += (float64(x) - xMean) * (y - yMean)
		}
		out[i] = cov / xVar
	}

	return out
}
