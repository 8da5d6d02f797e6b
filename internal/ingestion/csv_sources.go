package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/features"
	"energy-forecast-lab/internal/timeseries"
)

// Export column names.
const (
	ColumnTimestamp            = "DateTimeUtc"
	ColumnMeteringPoint        = "MeteringPointId"
	ColumnConsumption          = "Consumption"
	ColumnConsumptionCommunity = "ConsumptionCommunity"
	ColumnTemperature          = "Temperature"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("missing csv column")

// ReadMeterCSV parses a meter export with the header
// DateTimeUtc,MeteringPointId,Consumption[,ConsumptionCommunity].
// Rows without a consumption value are skipped.
func ReadMeterCSV(r io.Reader, communityID int64) ([]*domain.MeterReading, error) {
	reader, columns, err := openCSV(r, ColumnTimestamp, ColumnMeteringPoint, ColumnConsumption)
	if err != nil {
		return nil, err
	}
	communityIdx, hasCommunity := columns[ColumnConsumptionCommunity]

	var readings []*domain.MeterReading
	err = eachRecord(reader, func(record []string) error {
		ts, err := timeseries.ParseTimestamp(record[columns[ColumnTimestamp]])
		if err != nil {
			return err
		}
		consumption, err := timeseries.ParseValue(record[columns[ColumnConsumption]])
		if err != nil {
			return fmt.Errorf("parse %s: %w", ColumnConsumption, err)
		}
		if features.IsAbsent(consumption) {
			return nil
		}

		reading := &domain.MeterReading{
			CommunityID:     communityID,
			MeteringPointID: strings.TrimSpace(record[columns[ColumnMeteringPoint]]),
			Timestamp:       ts,
			Consumption:     consumption,
		}
		if reading.MeteringPointID == "" {
			return fmt.Errorf("empty %s", ColumnMeteringPoint)
		}
		if hasCommunity {
			v, err := timeseries.ParseValue(record[communityIdx])
			if err != nil {
				return fmt.Errorf("parse %s: %w", ColumnConsumptionCommunity, err)
			}
			if !features.IsAbsent(v) {
				reading.ConsumptionCommunity = &v
			}
		}
		readings = append(readings, reading)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

// ReadTemperatureCSV parses a temperature export with the header
// DateTimeUtc,Temperature. Rows without a temperature are skipped.
func ReadTemperatureCSV(r io.Reader, communityID int64) ([]*domain.TemperatureReading, error) {
	reader, columns, err := openCSV(r, ColumnTimestamp, ColumnTemperature)
	if err != nil {
		return nil, err
	}

	var readings []*domain.TemperatureReading
	err = eachRecord(reader, func(record []string) error {
		ts, err := timeseries.ParseTimestamp(record[columns[ColumnTimestamp]])
		if err != nil {
			return err
		}
		v, err := timeseries.ParseValue(record[columns[ColumnTemperature]])
		if err != nil {
			return fmt.Errorf("parse %s: %w", ColumnTemperature, err)
		}
		if features.IsAbsent(v) {
			return nil
		}
		readings = append(readings, &domain.TemperatureReading{
			CommunityID: communityID,
			Timestamp:   ts,
			Temperature: v,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

// openCSV reads the header and maps column names to positions.
func openCSV(r io.Reader, required ...string) (*csv.Reader, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[h] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return reader, columns, nil
}

// eachRecord calls fn for every data row. The csv reader rejects rows whose
// field count differs from the header.
func eachRecord(reader *csv.Reader, fn func(record []string) error) error {
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(record); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// CSVMeterSource reads meter readings from an export file.
type CSVMeterSource struct {
	Path        string
	CommunityID int64
}

// NewCSVMeterSource creates a source over the export at path.
func NewCSVMeterSource(path string, communityID int64) *CSVMeterSource {
	return &CSVMeterSource{Path: path, CommunityID: communityID}
}

// Fetch reads the file and returns readings within [from, to].
func (s *CSVMeterSource) Fetch(_ context.Context, from, to time.Time) ([]*domain.MeterReading, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := ReadMeterCSV(f, s.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	result := all[:0]
	for _, r := range all {
		if inRange(r.Timestamp, from, to) {
			result = append(result, r)
		}
	}
	return result, nil
}

// CSVTemperatureSource reads temperature readings from an export file.
type CSVTemperatureSource struct {
	Path        string
	CommunityID int64
}

// NewCSVTemperatureSource creates a source over the export at path.
func NewCSVTemperatureSource(path string, communityID int64) *CSVTemperatureSource {
	return &CSVTemperatureSource{Path: path, CommunityID: communityID}
}

// Fetch reads the file and returns readings within [from, to].
func (s *CSVTemperatureSource) Fetch(_ context.Context, from, to time.Time) ([]*domain.TemperatureReading, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := ReadTemperatureCSV(f, s.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	result := all[:0]
	for _, r := range all {
		if inRange(r.Timestamp, from, to) {
			result = append(result, r)
		}
	}
	return result, nil
}

var (
	_ MeterReadingSource = (*CSVMeterSource)(nil)
	_ TemperatureSource  = (*CSVTemperatureSource)(nil)
)
