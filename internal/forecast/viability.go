package forecast

import (
	"errors"
	"fmt"

	"energy-forecast-lab/internal/dataset"
	"energy-forecast-lab/internal/domain"
)

// Viability errors. Both are caller-level policy on top of a successful split.
var (
	// ErrForecastNotReady means the test partition is empty; retry once the day's data exists.
	ErrForecastNotReady = errors.New("forecast not ready: no complete test rows")

	// ErrInsufficientTraining means fewer complete train rows than required.
	ErrInsufficientTraining = errors.New("insufficient training rows")
)

// DefaultMinTrainRows is the smallest usable training partition.
const DefaultMinTrainRows = 100

// Check is one viability criterion.
type Check struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Assessment holds every check and the resulting run status.
type Assessment struct {
	Checks []Check
	Status domain.RunStatus
	Err    error // nil when Status is READY
}

// Evaluate runs the viability checks against split output.
// An empty test partition takes precedence over a short train partition.
func Evaluate(p *dataset.Partitions, minTrainRows int) Assessment {
	testRows, trainRows := 0, 0
	if p != nil {
		testRows, trainRows = p.Test.Len(), p.Train.Len()
	}

	a := Assessment{
		Checks: []Check{
			{
				Name:      "Complete test rows",
				Threshold: "> 0",
				Actual:    fmt.Sprintf("%d", testRows),
				Pass:      testRows > 0,
			},
			{
				Name:      "Complete train rows",
				Threshold: fmt.Sprintf(">= %d", minTrainRows),
				Actual:    fmt.Sprintf("%d", trainRows),
				Pass:      trainRows >= minTrainRows,
			},
		},
		Status: domain.RunStatusReady,
	}

	switch {
	case !a.Checks[0].Pass:
		a.Status = domain.RunStatusNotReady
		a.Err = ErrForecastNotReady
	case !a.Checks[1].Pass:
		a.Status = domain.RunStatusInsufficient
		a.Err = fmt.Errorf("%w: %d < %d", ErrInsufficientTraining, trainRows, minTrainRows)
	}
	return a
}

// Assess returns ErrForecastNotReady, ErrInsufficientTraining or nil.
func Assess(p *dataset.Partitions, minTrainRows int) error {
	return Evaluate(p, minTrainRows).Err
}
