// Package timeseries provides the hourly series type shared by the feature
// builder, the dataset splitter and the storage adapters.
//
// An absent observation is represented as NaN. Every transformation returns
// a new Series; inputs are never modified in place.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Series errors.
var (
	// ErrLengthMismatch is returned when timestamps and values differ in length.
	ErrLengthMismatch = errors.New("timestamps and values must have the same length")

	// ErrNonMonotonicIndex is returned when timestamps are not strictly increasing.
	ErrNonMonotonicIndex = errors.New("timestamps must be strictly increasing")

	// ErrUnalignedTimestamp is returned when a timestamp is not on the hourly grid.
	ErrUnalignedTimestamp = errors.New("timestamp is not aligned to a full hour")
)

// Series is a time-indexed sequence of values. Values may be NaN (absent).
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a series from owned copies of timestamps and values.
// Timestamps are converted to UTC.
func New(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, ErrLengthMismatch
	}

	ts := make([]time.Time, len(timestamps))
	for i, t := range timestamps {
		ts[i] = t.UTC()
	}
	vals := make([]float64, len(values))
	copy(vals, values)

	return &Series{
		Timestamps: ts,
		Values:     vals,
	}, nil
}

// Hourly creates a series of len(values) points starting at start, spaced one hour apart.
func Hourly(start time.Time, values []float64) *Series {
	start = start.UTC()
	ts := make([]time.Time, len(values))
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return &Series{Timestamps: ts, Values: vals}
}

// Len returns the length of the series.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Observed returns the number of non-NaN values.
func (s *Series) Observed() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Validate checks that the series is well formed: equal lengths and a
// strictly increasing index.
func (s *Series) Validate() error {
	if len(s.Timestamps) != len(s.Values) {
		return ErrLengthMismatch
	}
	for i := 1; i < len(s.Timestamps); i++ {
		if !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return fmt.Errorf("%w: %s at position %d follows %s",
				ErrNonMonotonicIndex,
				s.Timestamps[i].UTC().Format(time.RFC3339), i,
				s.Timestamps[i-1].UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// AsHourly returns the series re-indexed onto a strict hourly grid spanning
// the first to the last timestamp. Hours without an observation are NaN.
func (s *Series) AsHourly() (*Series, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(s.Values) == 0 {
		return &Series{Name: s.Name}, nil
	}

	for _, t := range s.Timestamps {
		if !t.Equal(t.Truncate(time.Hour)) {
			return nil, fmt.Errorf("%w: %s", ErrUnalignedTimestamp, t.UTC().Format(time.RFC3339Nano))
		}
	}

	first := s.Timestamps[0].UTC()
	last := s.Timestamps[len(s.Timestamps)-1].UTC()
	n := int(last.Sub(first)/time.Hour) + 1

	timestamps := make([]time.Time, n)
	values := make([]float64, n)
	for i := range timestamps {
		timestamps[i] = first.Add(time.Duration(i) * time.Hour)
		values[i] = math.NaN()
	}
	for i, t := range s.Timestamps {
		pos := int(t.Sub(first) / time.Hour)
		values[pos] = s.Values[i]
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}, nil
}

// Between returns a copy of the points with start <= t < end, or
// start <= t <= end when inclusiveEnd is set.
func (s *Series) Between(start, end time.Time, inclusiveEnd bool) *Series {
	var timestamps []time.Time
	var values []float64
	for i, t := range s.Timestamps {
		if t.Before(start) {
			continue
		}
		if t.After(end) || (!inclusiveEnd && t.Equal(end)) {
			break
		}
		timestamps = append(timestamps, t)
		values = append(values, s.Values[i])
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Concat returns s followed by other. Every timestamp of other must be later
// than the last timestamp of s.
func (s *Series) Concat(other *Series) (*Series, error) {
	if other.Len() == 0 {
		return s.Copy(), nil
	}
	if s.Len() > 0 && !other.Timestamps[0].After(s.Timestamps[len(s.Timestamps)-1]) {
		return nil, fmt.Errorf("%w: concatenated series overlaps", ErrNonMonotonicIndex)
	}

	timestamps := make([]time.Time, 0, s.Len()+other.Len())
	timestamps = append(timestamps, s.Timestamps...)
	timestamps = append(timestamps, other.Timestamps...)

	values := make([]float64, 0, s.Len()+other.Len())
	values = append(values, s.Values...)
	values = append(values, other.Values...)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}, nil
}

// ForwardFill propagates the last observed value into following NaN
// positions, filling at most limit consecutive positions per gap.
// Leading NaN values stay NaN. A limit of 0 disables filling.
func (s *Series) ForwardFill(limit int) *Series {
	out := s.Copy()
	if limit <= 0 {
		return out
	}

	last := math.NaN()
	run := 0
	for i, v := range out.Values {
		if !math.IsNaN(v) {
			last = v
			run = 0
			continue
		}
		if math.IsNaN(last) {
			continue
		}
		run++
		if run <= limit {
			out.Values[i] = last
		}
	}
	return out
}

// Reindex realigns the series onto index by exact timestamp match.
// Timestamps in index that the series does not contain yield NaN.
func (s *Series) Reindex(index []time.Time) *Series {
	lookup := make(map[int64]float64, len(s.Timestamps))
	for i, t := range s.Timestamps {
		lookup[t.UnixNano()] = s.Values[i]
	}

	timestamps := make([]time.Time, len(index))
	values := make([]float64, len(index))
	for i, t := range index {
		timestamps[i] = t
		if v, ok := lookup[t.UnixNano()]; ok {
			values[i] = v
		} else {
			values[i] = math.NaN()
		}
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s *Series) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// End returns the last timestamp, or the zero time for an empty series.
func (s *Series) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}
