// Package dataset assembles leakage-free train/test partitions from an hourly
// consumption series and an optional temperature series.
package dataset

import (
	"errors"
	"fmt"
	"time"

	"energy-forecast-lab/internal/features"
	"energy-forecast-lab/internal/timeseries"
)

// Dataset errors.
var (
	// ErrMalformedBoundary is returned when train_start > test_start or test_start > test_end.
	ErrMalformedBoundary = errors.New("malformed dataset boundaries")

	// ErrInvalidFillLimit is returned when the forward-fill limit is out of range.
	ErrInvalidFillLimit = errors.New("invalid forward-fill limit")
)

// Forward-fill limits in hours.
const (
	DefaultFillLimit = 24
	MaxFillLimit     = 336
)

// Boundaries delimit the spans: train covers [TrainStart, TestStart),
// test covers [TestStart, TestEnd].
type Boundaries struct {
	TrainStart time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// Validate fails when the boundaries are out of order.
func (b Boundaries) Validate() error {
	if b.TrainStart.After(b.TestStart) {
		return fmt.Errorf("%w: train start %s after test start %s",
			ErrMalformedBoundary, b.TrainStart.UTC().Format(time.RFC3339), b.TestStart.UTC().Format(time.RFC3339))
	}
	if b.TestStart.After(b.TestEnd) {
		return fmt.Errorf("%w: test start %s after test end %s",
			ErrMalformedBoundary, b.TestStart.UTC().Format(time.RFC3339), b.TestEnd.UTC().Format(time.RFC3339))
	}
	return nil
}

// Options configures a split.
type Options struct {
	Spec      features.Spec
	FillLimit int // max consecutive hours forward-filled in history+train
}

// DefaultOptions returns the default feature spec and fill limit.
func DefaultOptions() Options {
	return Options{
		Spec:      features.DefaultSpec(),
		FillLimit: DefaultFillLimit,
	}
}

// Validate checks the spec and the fill limit.
func (o Options) Validate() error {
	if err := o.Spec.Validate(); err != nil {
		return err
	}
	if o.FillLimit < 0 || o.FillLimit > MaxFillLimit {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidFillLimit, o.FillLimit, MaxFillLimit)
	}
	return nil
}

// Split builds the train and test partitions.
//
// Steps:
//  1. Normalize base to a strict hourly grid (missing hours are absent)
//  2. Slice the history buffer [train_start - max_window, train_start)
//  3. Forward-fill history+train up to FillLimit hours
//  4. Build features over history+train, keep the train span
//  5. Drop rows with any absent feature or target
//  6. Append raw test values, rebuild features, keep the test span, same mask
//
// An empty test partition is a valid result.
func Split(base, exo *timeseries.Series, b Boundaries, opts Options) (*Partitions, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("split: nil base series")
	}

	hourly, err := base.AsHourly()
	if err != nil {
		return nil, fmt.Errorf("split: normalize base series: %w", err)
	}

	spec := opts.Spec.Normalized()
	historyStart := b.TrainStart.Add(-time.Duration(spec.MaxWindow()) * time.Hour)

	history := hourly.Between(historyStart, b.TrainStart, false)
	trainRaw := hourly.Between(b.TrainStart, b.TestStart, false)
	testRaw := hourly.Between(b.TestStart, b.TestEnd, true)

	histTrain, err := history.Concat(trainRaw)
	if err != nil {
		return nil, fmt.Errorf("split: join history and train: %w", err)
	}
	histTrain = histTrain.ForwardFill(opts.FillLimit)

	trainTarget := histTrain.Between(b.TrainStart, b.TestStart, false)
	trainFeats, err := features.Build(histTrain, exo, spec)
	if err != nil {
		return nil, fmt.Errorf("split: build train features: %w", err)
	}
	train := assemble(trainFeats, trainTarget)

	extended, err := histTrain.Concat(testRaw)
	if err != nil {
		return nil, fmt.Errorf("split: join test span: %w", err)
	}
	testFeats, err := features.Build(extended, exo, spec)
	if err != nil {
		return nil, fmt.Errorf("split: build test features: %w", err)
	}
	test := assemble(testFeats, testRaw)

	return &Partitions{
		Train: train,
		Test:  test,
		Keys:  spec.Keys(exo != nil),
		Stats: Stats{
			HistoryRows:     history.Len(),
			TrainCandidates: trainTarget.Len(),
			TrainDropped:    trainTarget.Len() - train.Len(),
			TestCandidates:  testRaw.Len(),
			TestDropped:     testRaw.Len() - test.Len(),
		},
	}, nil
}

// assemble restricts feats to the timestamps of target and applies the
// paired completeness mask.
func assemble(feats *features.Matrix, target *timeseries.Series) Partition {
	rows := feats.Locate(target.Timestamps)

	keep := make([]int, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for i, row := range rows {
		y := target.Values[i]
		if features.IsAbsent(y) || !feats.RowComplete(row) {
			continue
		}
		keep = append(keep, row)
		values = append(values, y)
	}

	selected := feats.Select(keep)
	index := make([]time.Time, len(selected.Index))
	copy(index, selected.Index)
	return Partition{
		Features: selected,
		Target:   values,
		Index:    index,
	}
}
