package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// DatasetRunStore implements storage.DatasetRunStore using PostgreSQL.
type DatasetRunStore struct {
	pool *Pool
}

// NewDatasetRunStore creates a new DatasetRunStore.
func NewDatasetRunStore(pool *Pool) *DatasetRunStore {
	return &DatasetRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DatasetRunStore = (*DatasetRunStore)(nil)

const datasetRunColumns = `
	run_id, community_id, variant, mode, status,
	train_start, forecast_start, forecast_end,
	spec_fingerprint, fill_limit, feature_count,
	train_rows, test_rows, train_dropped, test_dropped,
	created_at
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *DatasetRunStore) Insert(ctx context.Context, r *domain.DatasetRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dataset_runs (` + datasetRunColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.CommunityID, string(r.Variant), string(r.Mode), string(r.Status),
		r.TrainStart.UTC(), r.ForecastStart.UTC(), r.ForecastEnd.UTC(),
		r.SpecFingerprint, r.FillLimit, r.FeatureCount,
		r.TrainRows, r.TestRows, r.TrainDropped, r.TestDropped,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert dataset run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *DatasetRunStore) GetByID(ctx context.Context, runID string) (*domain.DatasetRun, error) {
	query := `SELECT ` + datasetRunColumns + ` FROM dataset_runs WHERE run_id = $1`

	r, err := scanDatasetRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get dataset run: %w", err)
	}
	return r, nil
}

// GetByCommunity retrieves all runs of a community, ordered by forecast_start ASC, variant ASC.
func (s *DatasetRunStore) GetByCommunity(ctx context.Context, communityID int64) ([]*domain.DatasetRun, error) {
	query := `
		SELECT ` + datasetRunColumns + `
		FROM dataset_runs
		WHERE community_id = $1
		ORDER BY forecast_start ASC, variant ASC
	`

	rows, err := s.pool.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("query dataset runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.DatasetRun
	for rows.Next() {
		r, err := scanDatasetRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset runs: %w", err)
	}
	return result, nil
}

// scanDatasetRun scans a single row; pgx.Row and pgx.Rows both satisfy it.
func scanDatasetRun(row pgx.Row) (*domain.DatasetRun, error) {
	var r domain.DatasetRun
	var variant, mode, status string

	err := row.Scan(
		&r.RunID, &r.CommunityID, &variant, &mode, &status,
		&r.TrainStart, &r.ForecastStart, &r.ForecastEnd,
		&r.SpecFingerprint, &r.FillLimit, &r.FeatureCount,
		&r.TrainRows, &r.TestRows, &r.TrainDropped, &r.TestDropped,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Variant = domain.Variant(variant)
	r.Mode = domain.RunMode(mode)
	r.Status = domain.RunStatus(status)
	r.TrainStart = r.TrainStart.UTC()
	r.ForecastStart = r.ForecastStart.UTC()
	r.ForecastEnd = r.ForecastEnd.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
