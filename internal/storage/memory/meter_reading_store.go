package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

// MeterReadingStore is an in-memory implementation of storage.MeterReadingStore.
type MeterReadingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MeterReading // keyed by (metering_point_id, timestamp)
}

// NewMeterReadingStore creates a new in-memory meter reading store.
func NewMeterReadingStore() *MeterReadingStore {
	return &MeterReadingStore{
		data: make(map[string]*domain.MeterReading),
	}
}

func meterReadingKey(meteringPointID string, ts time.Time) string {
	return fmt.Sprintf("%s|%d", meteringPointID, ts.UnixNano())
}

// InsertBulk adds multiple readings. Fails entire batch on duplicate.
func (s *MeterReadingStore) InsertBulk(_ context.Context, readings []*domain.MeterReading) error {
	if len(readings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		if r == nil || r.MeteringPointID == "" || r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := meterReadingKey(r.MeteringPointID, r.Timestamp)
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
		s.data[meterReadingKey(r.MeteringPointID, r.Timestamp)] = &readingCopy
	}

	return nil
}

// HourlyConsumption sums the readings of a community per hour within [start, end].
func (s *MeterReadingStore) HourlyConsumption(_ context.Context, communityID int64, start, end time.Time) ([]domain.HourlyValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[int64]float64)
	for _, r := range s.data {
		if r.CommunityID != communityID {
			continue
		}
		hour := r.Timestamp.Truncate(time.Hour)
		if hour.Before(start) || hour.After(end) {
			continue
		}
		sums[hour.UnixNano()] += r.Consumption
	}

	return sortedHourly(sums), nil
}

// sortedHourly converts an hour->value map into a slice ordered by hour ASC.
func sortedHourly(values map[int64]float64) []domain.HourlyValue {
	result := make([]domain.HourlyValue, 0, len(values))
	for ns, v := range values {
		result = append(result, domain.HourlyValue{Hour: time.Unix(0, ns).UTC(), Value: v})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Hour.Before(result[j].Hour)
	})
	return result
}

var _ storage.MeterReadingStore = (*MeterReadingStore)(nil)
