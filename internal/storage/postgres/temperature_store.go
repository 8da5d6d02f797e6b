package postgres

import (
	"context"
	"fmt"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// TemperatureStore implements storage.TemperatureStore using PostgreSQL.
type TemperatureStore struct {
	pool *Pool
}

// NewTemperatureStore creates a new TemperatureStore.
func NewTemperatureStore(pool *Pool) *TemperatureStore {
	return &TemperatureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TemperatureStore = (*TemperatureStore)(nil)

// InsertBulk adds multiple readings atomically. Fails entire batch on any duplicate.
func (s *TemperatureStore) InsertBulk(ctx context.Context, readings []*domain.TemperatureReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO temperature_readings (community_id, ts, temperature)
		VALUES ($1, $2, $3)
	`

	for _, r := range readings {
		if r == nil || r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, r.CommunityID, r.Timestamp.UTC(), r.Temperature); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert temperature reading in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// HourlyTemperature averages the readings of a community per UTC hour within [start, end].
func (s *TemperatureStore) HourlyTemperature(ctx context.Context, communityID int64, start, end time.Time) ([]domain.HourlyValue, error) {
	query := `
		SELECT date_trunc('hour', ts, 'UTC') AS hour, AVG(temperature)
		FROM temperature_readings
		WHERE community_id = $1
		  AND date_trunc('hour', ts, 'UTC') >= $2
		  AND date_trunc('hour', ts, 'UTC') <= $3
		GROUP BY hour
		ORDER BY hour ASC
	`

	rows, err := s.pool.Query(ctx, query, communityID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query hourly temperature: %w", err)
	}
	return scanHourly(rows)
}
