package clickhouse

import (
	"context"
	"fmt"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// FeatureRowStore implements storage.FeatureRowStore using ClickHouse.
type FeatureRowStore struct {
	conn *Conn
}

// NewFeatureRowStore creates a new FeatureRowStore.
func NewFeatureRowStore(conn *Conn) *FeatureRowStore {
	return &FeatureRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)

type featureRowKey struct {
	runID     string
	partition string
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
// MergeTree does not enforce uniqueness, so keys are checked before the batch is sent.
func (s *FeatureRowStore) InsertBulk(ctx context.Context, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	batchKeys := make(map[featureRowKey]map[int64]struct{})
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Partition == "" {
			return storage.ErrInvalidInput
		}
		k := featureRowKey{r.RunID, r.Partition}
		if batchKeys[k] == nil {
			batchKeys[k] = make(map[int64]struct{})
		}
		if _, exists := batchKeys[k][r.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k][r.TimestampMs] = struct{}{}
	}

	for k, timestamps := range batchKeys {
		existing, err := s.existingTimestamps(ctx, k.runID, k.partition)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for ts := range timestamps {
			if _, dup := existing[ts]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_rows (run_id, partition_name, timestamp_ms, features, target)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		features := r.Features
		if features == nil {
			features = map[string]float64{}
		}
		if err := batch.Append(r.RunID, r.Partition, uint64(r.TimestampMs), features, r.Target); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all rows of a run, train partition first, then by timestamp ASC.
func (s *FeatureRowStore) GetByRunID(ctx context.Context, runID string) ([]*domain.FeatureRow, error) {
	query := `
		SELECT run_id, partition_name, timestamp_ms, features, target
		FROM feature_rows
		WHERE run_id = ?
		ORDER BY partition_name = 'train' DESC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// existingTimestamps returns the stored timestamps of one (run, partition).
func (s *FeatureRowStore) existingTimestamps(ctx context.Context, runID, partition string) (map[int64]struct{}, error) {
	query := `
		SELECT timestamp_ms FROM feature_rows
		WHERE run_id = ? AND partition_name = ?
	`

	rows, err := s.conn.Query(ctx, query, runID, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var ts uint64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out[int64(ts)] = struct{}{}
	}
	return out, rows.Err()
}

// scanFeatureRows scans multiple rows.
func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var result []*domain.FeatureRow

	for rows.Next() {
		var r domain.FeatureRow
		var timestampMs uint64

		if err := rows.Scan(&r.RunID, &r.Partition, &timestampMs, &r.Features, &r.Target); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		r.TimestampMs = int64(timestampMs)

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	return result, nil
}
