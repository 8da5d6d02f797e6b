package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// MeterReadingStore implements storage.MeterReadingStore using PostgreSQL.
type MeterReadingStore struct {
	pool *Pool
}

// NewMeterReadingStore creates a new MeterReadingStore.
func NewMeterReadingStore(pool *Pool) *MeterReadingStore {
	return &MeterReadingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MeterReadingStore = (*MeterReadingStore)(nil)

// InsertBulk adds multiple readings atomically via COPY. Fails entire batch on any duplicate.
func (s *MeterReadingStore) InsertBulk(ctx context.Context, readings []*domain.MeterReading) error {
	if len(readings) == 0 {
		return nil
	}
	for _, r := range readings {
		if r == nil || r.MeteringPointID == "" || r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"meter_readings"},
		[]string{"community_id", "metering_point_id", "ts", "consumption", "consumption_community"},
		pgx.CopyFromSlice(len(readings), func(i int) ([]any, error) {
			r := readings[i]
			return []any{r.CommunityID, r.MeteringPointID, r.Timestamp.UTC(), r.Consumption, r.ConsumptionCommunity}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy meter readings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// HourlyConsumption sums the readings of a community per UTC hour within [start, end].
func (s *MeterReadingStore) HourlyConsumption(ctx context.Context, communityID int64, start, end time.Time) ([]domain.HourlyValue, error) {
	query := `
		SELECT date_trunc('hour', ts, 'UTC') AS hour, SUM(consumption)
		FROM meter_readings
		WHERE community_id = $1
		  AND date_trunc('hour', ts, 'UTC') >= $2
		  AND date_trunc('hour', ts, 'UTC') <= $3
		GROUP BY hour
		ORDER BY hour ASC
	`

	rows, err := s.pool.Query(ctx, query, communityID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query hourly consumption: %w", err)
	}
	return scanHourly(rows)
}
