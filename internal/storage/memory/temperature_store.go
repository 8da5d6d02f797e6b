package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// TemperatureStore is an in-memory implementation of storage.TemperatureStore.
type TemperatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TemperatureReading // keyed by (community_id, timestamp)
}

// NewTemperatureStore creates a new in-memory temperature store.
func NewTemperatureStore() *TemperatureStore {
	return &TemperatureStore{
		data: make(map[string]*domain.TemperatureReading),
	}
}

func temperatureKey(communityID int64, ts time.Time) string {
	return fmt.Sprintf("%d|%d", communityID, ts.UnixNano())
}

// InsertBulk adds multiple readings. Fails entire batch on duplicate.
func (s *TemperatureStore) InsertBulk(_ context.Context, readings []*domain.TemperatureReading) error {
	if len(readings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		if r == nil || r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := temperatureKey(r.CommunityID, r.Timestamp)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range readings {
		readingCopy := *r
		readingCopy.Timestamp = r.Timestamp.UTC()
		s.data[temperatureKey(r.CommunityID, r.Timestamp)] = &readingCopy
	}

	return nil
}

// HourlyTemperature averages the readings of a community per hour within [start, end].
func (s *TemperatureStore) HourlyTemperature(_ context.Context, communityID int64, start, end time.Time) ([]domain.HourlyValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, r := range s.data {
		if r.CommunityID != communityID {
			continue
		}
		hour := r.Timestamp.Truncate(time.Hour)
		if hour.Before(start) || hour.After(end) {
			continue
		}
		sums[hour.UnixNano()] += r.Temperature
		counts[hour.UnixNano()]++
	}
	for k, n := range counts {
		sums[k] /= float64(n)
	}

	return sortedHourly(sums), nil
}

var _ storage.TemperatureStore = (*TemperatureStore)(nil)
