// Package features expands an hourly series into lag, rolling-statistic,
// trend, difference, calendar and temperature features.
//
// Every feature at row t is computed from values at or before t only.
// Lags and differences are positional, so the base series is expected to be
// on a regular hourly grid (see timeseries.Series.AsHourly).
package features

import (
	"fmt"
	"math"
	"time"

	"energy-forecast-lab/internal/timeseries"
)

// Build computes the feature matrix for base and, when exo is non-nil, the
// temperature features of exo realigned onto the base index.
//
// Build is a pure function: identical inputs produce identical column sets,
// column order and values.
func Build(base, exo *timeseries.Series, spec Spec) (*Matrix, error) {
	if base == nil {
		return nil, fmt.Errorf("build features: nil base series")
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if exo != nil {
		if err := exo.Validate(); err != nil {
			return nil, fmt.Errorf("build features: exogenous series: %w", err)
		}
	}

	spec = spec.Normalized()
	values := base.Values
	m := newMatrix(base.Timestamps)

	for _, l := range spec.Lags {
		m.set(Key{Kind: KindLag, Param: l}, shift(values, l))
	}

	for _, w := range spec.RollingWindows {
		rs := trailingRolling(values, w)
		m.set(Key{Kind: KindRollingMean, Param: w}, rs.mean)
		m.set(Key{Kind: KindRollingStd, Param: w}, rs.std)
		m.set(Key{Kind: KindRollingMin, Param: w}, rs.min)
		m.set(Key{Kind: KindRollingMax, Param: w}, rs.max)
		m.set(Key{Kind: KindSlope, Param: w}, TrailingSlope(values, w))
	}

	for _, d := range spec.Diffs {
		m.set(Key{Kind: KindDiff, Param: d}, diff(values, d))
	}

	hour, weekday, month, weekend := calendar(base.Timestamps)
	m.set(Key{Kind: KindHour}, hour)
	m.set(Key{Kind: KindWeekday}, weekday)
	m.set(Key{Kind: KindMonth}, month)
	m.set(Key{Kind: KindWeekend}, weekend)

	if exo != nil {
		temp := exo.Reindex(base.Timestamps).Values
		m.set(Key{Kind: KindTemp}, temp)
		m.set(Key{Kind: KindTempLag, Param: TempLagDay}, shift(temp, TempLagDay))
		m.set(Key{Kind: KindTempLag, Param: TempLagWeek}, shift(temp, TempLagWeek))
		m.set(Key{Kind: KindTempDiff, Param: TempDiffDay}, diff(temp, TempDiffDay))
	}

	return m, nil
}

// shift returns values moved k positions later; the first k positions are NaN.
func shift(values []float64, k int) []float64 {
	n := len(values)
	out := nanSlice(n)
	for i := k; i < n; i++ {
		out[i] = values[i-k]
	}
	return out
}

// diff returns values[i] - values[i-d]; the first d positions are NaN.
func diff(values []float64, d int) []float64 {
	n := len(values)
	out := nanSlice(n)
	for i := d; i < n; i++ {
		out[i] = values[i] - values[i-d]
	}
	return out
}

// calendar derives hour [0-23], weekday [0-6] with Monday = 0, month [1-12]
// and the weekend flag (Saturday/Sunday) from UTC timestamps.
func calendar(index []time.Time) (hour, weekday, month, weekend []float64) {
	n := len(index)
	hour = make([]float64, n)
	weekday = make([]float64, n)
	month = make([]float64, n)
	weekend = make([]float64, n)

	for i, t := range index {
		t = t.UTC()
		wd := (int(t.Weekday()) + 6) % 7
		hour[i] = float64(t.Hour())
		weekday[i] = float64(wd)
		month[i] = float64(t.Month())
		if wd >= 5 {
			weekend[i] = 1
		}
	}
	return hour, weekday, month, weekend
}

// IsAbsent reports whether v represents an absent value.
func IsAbsent(v float64) bool {
	return math.IsNaN(v)
}
