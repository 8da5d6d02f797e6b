package memory

import (
	"context"
	"sort"
	"sync"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// DatasetRunStore is an in-memory implementation of storage.DatasetRunStore.
type DatasetRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DatasetRun // keyed by run_id
}

// NewDatasetRunStore creates a new in-memory dataset run store.
func NewDatasetRunStore() *DatasetRunStore {
	return &DatasetRunStore{
		data: make(map[string]*domain.DatasetRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *DatasetRunStore) Insert(_ context.Context, r *domain.DatasetRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *DatasetRunStore) GetByID(_ context.Context, runID string) (*domain.DatasetRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	return &runCopy, nil
}

// GetByCommunity retrieves all runs of a community, ordered by forecast_start ASC, variant ASC.
func (s *DatasetRunStore) GetByCommunity(_ context.Context, communityID int64) ([]*domain.DatasetRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DatasetRun
	for _, r := range s.data {
		if r.CommunityID == communityID {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ForecastStart.Equal(result[j].ForecastStart) {
			return result[i].ForecastStart.Before(result[j].ForecastStart)
		}
		return result[i].Variant < result[j].Variant
	})

	return result, nil
}

var _ storage.DatasetRunStore = (*DatasetRunStore)(nil)
