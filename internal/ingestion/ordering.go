package ingestion

import (
	"errors"
	"sort"
	"strings"

	"energy-forecast-lab/internal/domain"
)

// ErrInvalidOrdering is returned when readings are not properly ordered.
var ErrInvalidOrdering = errors.New("readings are not in deterministic order")

// SortMeterReadings orders readings by (timestamp ASC, metering_point_id ASC).
func SortMeterReadings(readings []*domain.MeterReading) {
	sort.Slice(readings, func(i, j int) bool {
		return compareMeterReadings(readings[i], readings[j]) < 0
	})
}

// SortTemperatureReadings orders readings by (community_id ASC, timestamp ASC).
func SortTemperatureReadings(readings []*domain.TemperatureReading) {
	sort.Slice(readings, func(i, j int) bool {
		return compareTemperatureReadings(readings[i], readings[j]) < 0
	})
}

// ValidateMeterReadingOrdering checks that readings are strictly ordered.
// Equal keys are duplicates and also fail.
func ValidateMeterReadingOrdering(readings []*domain.MeterReading) error {
	for i := 1; i < len(readings); i++ {
		if compareMeterReadings(readings[i-1], readings[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// ValidateTemperatureOrdering checks that readings are strictly ordered.
func ValidateTemperatureOrdering(readings []*domain.TemperatureReading) error {
	for i := 1; i < len(readings); i++ {
		if compareTemperatureReadings(readings[i-1], readings[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareMeterReadings returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, metering_point_id ASC)
func compareMeterReadings(a, b *domain.MeterReading) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.MeteringPointID, b.MeteringPointID)
}

// Order: (community_id ASC, timestamp ASC)
func compareTemperatureReadings(a, b *domain.TemperatureReading) int {
	if a.CommunityID != b.CommunityID {
		if a.CommunityID < b.CommunityID {
			return -1
		}
		return 1
	}
	return a.Timestamp.Compare(b.Timestamp)
}
