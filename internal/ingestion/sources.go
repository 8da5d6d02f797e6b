// Package ingestion loads raw meter and temperature exports into storage.
package ingestion

import (
	"context"
	"time"

	"energy-forecast-lab/internal/domain"
)

// MeterReadingSource provides raw meter readings from external exports.
type MeterReadingSource interface {
	// Fetch returns readings within [from, to] (inclusive). A zero bound is open.
	// Readings may be unordered; the Backfiller enforces deterministic ordering.
	Fetch(ctx context.Context, from, to time.Time) ([]*domain.MeterReading, error)
}

// TemperatureSource provides raw temperature readings from external exports.
type TemperatureSource interface {
	// Fetch returns readings within [from, to] (inclusive). A zero bound is open.
	Fetch(ctx context.Context, from, to time.Time) ([]*domain.TemperatureReading, error)
}

func inRange(ts, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}
