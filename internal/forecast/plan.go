// Package forecast turns a forecast day into a leakage-free dataset: it plans
// the boundaries, loads the hourly series from storage, splits, judges
// viability and records the run.
package forecast

import (
	"errors"
	"fmt"
	"time"

	"energy-forecast-lab/internal/dataset"
	"energy-forecast-lab/internal/domain"
)

// ErrInvalidPlan is returned for a non-positive training length.
var ErrInvalidPlan = errors.New("invalid forecast plan")

// Default plan parameters.
const (
	DefaultTrainDays = 45
	HoursPerDay      = 24
)

// Plan is the time layout of one forecast day.
type Plan struct {
	Mode          domain.RunMode
	TrainDays     int
	TrainStart    time.Time // ForecastStart - TrainDays
	ForecastStart time.Time // 00:00 UTC of the forecast day
	ForecastEnd   time.Time // 23:00 UTC of the forecast day
}

// NewPlan builds the plan for forecastDate, or for tomorrow (UTC) when
// forecastDate is nil. Only the calendar date of forecastDate is used.
func NewPlan(forecastDate *time.Time, trainDays int, now func() time.Time) (Plan, error) {
	if trainDays <= 0 {
		return Plan{}, fmt.Errorf("%w: train days must be positive, got %d", ErrInvalidPlan, trainDays)
	}

	var start time.Time
	mode := domain.RunModeSimulation
	if forecastDate == nil {
		if now == nil {
			now = time.Now
		}
		start = StartOfDay(now()).AddDate(0, 0, 1)
		mode = domain.RunModeProduction
	} else {
		start = StartOfDay(*forecastDate)
	}

	return Plan{
		Mode:          mode,
		TrainDays:     trainDays,
		TrainStart:    start.Add(-time.Duration(trainDays*HoursPerDay) * time.Hour),
		ForecastStart: start,
		ForecastEnd:   start.Add((HoursPerDay - 1) * time.Hour),
	}, nil
}

// StartOfDay returns 00:00 UTC of the UTC calendar day containing t.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Boundaries maps the plan onto the splitter's spans.
func (p Plan) Boundaries() dataset.Boundaries {
	return dataset.Boundaries{
		TrainStart: p.TrainStart,
		TestStart:  p.ForecastStart,
		TestEnd:    p.ForecastEnd,
	}
}

// Day returns the forecast day as YYYY-MM-DD.
func (p Plan) Day() string {
	return p.ForecastStart.Format(time.DateOnly)
}
