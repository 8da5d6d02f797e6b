package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDatasetRun(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordDatasetRun("no_temp", "READY", 0.2, 1080, 24, 3, 1)
	m.RecordDatasetRun("no_temp", "READY", 0.3, 1000, 24, 2, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatasetRuns.WithLabelValues("no_temp", "READY")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.PartitionRows.WithLabelValues("no_temp", "train")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("no_temp", "train")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("no_temp", "test")))
}

func TestRecordIngestAndDB(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordIngested("meter", 96)
	m.RecordIngestError("temperature")
	m.RecordDBQuery("postgres", "hourly_consumption", 0.01, nil)
	m.RecordDBQuery("postgres", "hourly_consumption", 0.01, errors.New("boom"))

	assert.Equal(t, 96.0, testutil.ToFloat64(m.ReadingsIngested.WithLabelValues("meter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestErrors.WithLabelValues("temperature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "hourly_consumption")))
}
