package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// FeatureRowStore is an in-memory implementation of storage.FeatureRowStore.
type FeatureRowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureRow // keyed by (run_id, partition, timestamp_ms)
}

// NewFeatureRowStore creates a new in-memory feature row store.
func NewFeatureRowStore() *FeatureRowStore {
	return &FeatureRowStore{
		data: make(map[string]*domain.FeatureRow),
	}
}

func featureRowKey(runID, partition string, timestampMs int64) string {
	return fmt.Sprintf("%s|%s|%d", runID, partition, timestampMs)
}

// copyFeatureRow deep-copies the feature map.
func copyFeatureRow(r *domain.FeatureRow) *domain.FeatureRow {
	rowCopy := *r
	rowCopy.Features = make(map[string]float64, len(r.Features))
	for k, v := range r.Features {
		rowCopy.Features[k] = v
	}
	return &rowCopy
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *FeatureRowStore) InsertBulk(_ context.Context, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Partition == "" {
			return storage.ErrInvalidInput
		}
		key := featureRowKey(r.RunID, r.Partition, r.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		s.data[featureRowKey(r.RunID, r.Partition, r.TimestampMs)] = copyFeatureRow(r)
	}

	return nil
}

// GetByRunID retrieves all rows of a run, train partition first, then by timestamp ASC.
func (s *FeatureRowStore) GetByRunID(_ context.Context, runID string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.data {
		if r.RunID == runID {
			result = append(result, copyFeatureRow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Partition != result[j].Partition {
			// train before test
			return result[i].Partition == domain.PartitionTrain
		}
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)
