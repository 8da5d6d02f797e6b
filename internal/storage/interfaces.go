package storage

import (
	"context"
	"time"

	"energy-forecast-lab/internal/domain"
)

// MeterReadingStore provides access to meter_readings storage.
type MeterReadingStore interface {
	// InsertBulk adds multiple readings atomically.
	// Fails entire batch on duplicate (metering_point_id, timestamp).
	InsertBulk(ctx context.Context, readings []*domain.MeterReading) error

	// HourlyConsumption sums the readings of a community per hour within [start, end] (inclusive),
	// ordered by hour ASC. Hours without any reading are omitted.
	HourlyConsumption(ctx context.Context, communityID int64, start, end time.Time) ([]domain.HourlyValue, error)
}

// TemperatureStore provides access to temperature_readings storage.
type TemperatureStore interface {
	// InsertBulk adds multiple readings atomically.
	// Fails entire batch on duplicate (community_id, timestamp).
	InsertBulk(ctx context.Context, readings []*domain.TemperatureReading) error

	// HourlyTemperature retrieves readings of a community within [start, end] (inclusive),
	// ordered by hour ASC.
	HourlyTemperature(ctx context.Context, communityID int64, start, end time.Time) ([]domain.HourlyValue, error)
}

// FeatureRowStore provides access to feature_rows storage.
type FeatureRowStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, partition, timestamp_ms).
	InsertBulk(ctx context.Context, rows []*domain.FeatureRow) error

	// GetByRunID retrieves all rows of a run, ordered by partition (train first) and timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.FeatureRow, error)
}

// DatasetRunStore provides access to dataset_runs storage.
type DatasetRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.DatasetRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.DatasetRun, error)

	// GetByCommunity retrieves all runs of a community, ordered by forecast_start ASC, variant ASC.
	GetByCommunity(ctx context.Context, communityID int64) ([]*domain.DatasetRun, error)
}
