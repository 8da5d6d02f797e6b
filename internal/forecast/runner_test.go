package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-forecast-lab/internal/dataset"
	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/features"
	"energy-forecast-lab/internal/idhash"
	"energy-forecast-lab/internal/observability"
	"energy-forecast-lab/internal/storage"
	"energy-forecast-lab/internal/storage/memory"
)

const community int64 = 12

var forecastDay = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	readings    *memory.MeterReadingStore
	temperature *memory.TemperatureStore
	featureRows *memory.FeatureRowStore
	runs        *memory.DatasetRunStore
	metrics     *observability.Metrics
	runner      *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		readings:    memory.NewMeterReadingStore(),
		temperature: memory.NewTemperatureStore(),
		featureRows: memory.NewFeatureRowStore(),
		runs:        memory.NewDatasetRunStore(),
		metrics:     observability.NewMetrics("test", prometheus.NewRegistry()),
	}
	f.runner = NewRunner(Options{
		Readings:    f.readings,
		Temperature: f.temperature,
		FeatureRows: f.featureRows,
		Runs:        f.runs,
		Metrics:     f.metrics,
		Now:         func() time.Time { return forecastDay.Add(-6 * time.Hour) },
	})
	return f
}

// seed stores hourly readings for two metering points in [from, to).
func (f *fixture) seed(t *testing.T, from, to time.Time) {
	t.Helper()
	var meter []*domain.MeterReading
	var temp []*domain.TemperatureReading
	for ts := from; ts.Before(to); ts = ts.Add(time.Hour) {
		h := float64(ts.Hour())
		meter = append(meter,
			&domain.MeterReading{CommunityID: community, MeteringPointID: "AT001", Timestamp: ts, Consumption: 2 + math.Sin(h/24*2*math.Pi)},
			&domain.MeterReading{CommunityID: community, MeteringPointID: "AT002", Timestamp: ts, Consumption: 1 + float64(ts.Weekday())/10},
		)
		temp = append(temp, &domain.TemperatureReading{CommunityID: community, Timestamp: ts, Temperature: 5 + h/4})
	}
	require.NoError(t, f.readings.InsertBulk(context.Background(), meter))
	require.NoError(t, f.temperature.InsertBulk(context.Background(), temp))
}

func (f *fixture) seedFor(t *testing.T, p Plan, through time.Time) {
	t.Helper()
	f.seed(t, p.TrainStart.Add(-336*time.Hour), through)
}

func simulationPlan(t *testing.T, day time.Time) Plan {
	t.Helper()
	p, err := NewPlan(&day, DefaultTrainDays, nil)
	require.NoError(t, err)
	return p
}

func request(p Plan, variant domain.Variant) Request {
	return Request{
		CommunityID:  community,
		Plan:         p,
		Variant:      variant,
		Spec:         features.DefaultSpec(),
		FillLimit:    dataset.DefaultFillLimit,
		MinTrainRows: DefaultMinTrainRows,
	}
}

func TestRunner_Ready(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastEnd.Add(time.Hour))

	res, err := f.runner.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)

	assert.True(t, res.Ready())
	assert.False(t, res.Reused)
	assert.NoError(t, res.Assessment.Err)
	assert.Equal(t, 45*24, res.Run.TrainRows)
	assert.Equal(t, 24, res.Run.TestRows)
	assert.Equal(t, len(features.DefaultSpec().Keys(false)), res.Run.FeatureCount)
	assert.Equal(t, domain.RunModeSimulation, res.Run.Mode)
	assert.Equal(t, forecastDay.Add(-6*time.Hour), res.Run.CreatedAt)

	wantID := idhash.ComputeRunID(community, domain.VariantNoTemp, domain.RunModeSimulation, p.TrainStart, p.ForecastStart, p.ForecastEnd,
		features.DefaultSpec().Fingerprint(), dataset.DefaultFillLimit)
	assert.Equal(t, wantID, res.Run.RunID)

	stored, err := f.runs.GetByID(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusReady, stored.Status)

	rows, err := f.featureRows.GetByRunID(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 45*24+24)
	assert.Equal(t, domain.PartitionTrain, rows[0].Partition)
	assert.Equal(t, p.TrainStart.UnixMilli(), rows[0].TimestampMs)
	assert.Equal(t, domain.PartitionTest, rows[len(rows)-1].Partition)
	assert.Equal(t, p.ForecastEnd.UnixMilli(), rows[len(rows)-1].TimestampMs)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DatasetRuns.WithLabelValues("no_temp", "READY")))
	assert.Equal(t, float64(len(rows)), testutil.ToFloat64(f.metrics.FeatureRowsSaved))
	assert.Equal(t, 24.0, testutil.ToFloat64(f.metrics.PartitionRows.WithLabelValues("no_temp", "test")))
}

func TestRunner_RerunIsReused(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastEnd.Add(time.Hour))

	first, err := f.runner.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)
	second, err := f.runner.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Run.RunID, second.Run.RunID)
	assert.Equal(t, first.Partitions.Train.Target, second.Partitions.Train.Target)

	rows, err := f.featureRows.GetByRunID(context.Background(), first.Run.RunID)
	require.NoError(t, err)
	assert.Len(t, rows, 45*24+24)
	assert.Equal(t, float64(len(rows)), testutil.ToFloat64(f.metrics.FeatureRowsSaved))
}

// flakyRunStore fails the first Insert and then delegates.
type flakyRunStore struct {
	*memory.DatasetRunStore
	failed bool
}

func (s *flakyRunStore) Insert(ctx context.Context, r *domain.DatasetRun) error {
	if !s.failed {
		s.failed = true
		return errors.New("connection reset")
	}
	return s.DatasetRunStore.Insert(ctx, r)
}

func TestRunner_RetryAfterFailedRunInsert(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastEnd.Add(time.Hour))

	runs := &flakyRunStore{DatasetRunStore: f.runs}
	r := NewRunner(Options{
		Readings:    f.readings,
		FeatureRows: f.featureRows,
		Runs:        runs,
		Metrics:     f.metrics,
	})

	_, err := r.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.Error(t, err)

	res, err := r.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)
	assert.True(t, res.Ready())
	assert.False(t, res.Reused)

	stored, err := f.runs.GetByID(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusReady, stored.Status)

	rows, err := f.featureRows.GetByRunID(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	assert.Len(t, rows, 45*24+24)
	assert.Equal(t, float64(len(rows)), testutil.ToFloat64(f.metrics.FeatureRowsSaved))

	again, err := r.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)
	assert.True(t, again.Reused)
}

func TestRunner_ProductionDoesNotReuseSimulation(t *testing.T) {
	f := newFixture(t)
	sim := simulationPlan(t, forecastDay)
	f.seedFor(t, sim, sim.ForecastEnd.Add(time.Hour))

	prod, err := NewPlan(nil, DefaultTrainDays, func() time.Time { return forecastDay.Add(-6 * time.Hour) })
	require.NoError(t, err)
	require.Equal(t, sim.Boundaries(), prod.Boundaries())

	simRes, err := f.runner.Run(context.Background(), request(sim, domain.VariantNoTemp))
	require.NoError(t, err)
	prodRes, err := f.runner.Run(context.Background(), request(prod, domain.VariantNoTemp))
	require.NoError(t, err)

	assert.False(t, prodRes.Reused)
	assert.NotEqual(t, simRes.Run.RunID, prodRes.Run.RunID)

	stored, err := f.runs.GetByID(context.Background(), prodRes.Run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunModeProduction, stored.Mode)
}

func TestRunner_WithTemperature(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastEnd.Add(time.Hour))

	res, err := f.runner.Run(context.Background(), request(p, domain.VariantWithTemp))
	require.NoError(t, err)

	assert.True(t, res.Ready())
	assert.Equal(t, features.DefaultSpec().Keys(true), res.Partitions.Keys)
	assert.Equal(t, 45*24, res.Run.TrainRows)

	noTemp, err := f.runner.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)
	assert.NotEqual(t, noTemp.Run.RunID, res.Run.RunID)
}

func TestRunner_NotReadyIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastStart)

	res, err := f.runner.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)

	assert.False(t, res.Ready())
	assert.Equal(t, domain.RunStatusNotReady, res.Run.Status)
	assert.ErrorIs(t, res.Assessment.Err, ErrForecastNotReady)
	assert.Equal(t, 45*24, res.Run.TrainRows)

	_, err = f.runs.GetByID(context.Background(), res.Run.RunID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	rows, err := f.featureRows.GetByRunID(context.Background(), res.Run.RunID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DatasetRuns.WithLabelValues("no_temp", "NOT_READY")))
}

func TestRunner_Insufficient(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	// only the last three training days plus the forecast day
	f.seed(t, p.ForecastStart.Add(-72*time.Hour), p.ForecastEnd.Add(time.Hour))

	req := request(p, domain.VariantNoTemp)
	req.Spec = features.Spec{Lags: []int{1, 24}}
	res, err := f.runner.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusInsufficient, res.Run.Status)
	assert.ErrorIs(t, res.Assessment.Err, ErrInsufficientTraining)
	assert.Equal(t, 48, res.Run.TrainRows)
	assert.Equal(t, 24, res.Run.TestRows)

	_, err = f.runs.GetByID(context.Background(), res.Run.RunID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunner_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)

	_, err := f.runner.Run(context.Background(), request(p, domain.Variant("hourly")))
	assert.Error(t, err)

	req := request(p, domain.VariantNoTemp)
	req.FillLimit = dataset.MaxFillLimit + 1
	_, err = f.runner.Run(context.Background(), req)
	assert.ErrorIs(t, err, dataset.ErrInvalidFillLimit)

	req = request(Plan{}, domain.VariantNoTemp)
	_, err = f.runner.Run(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	noTemp := NewRunner(Options{Readings: f.readings})
	_, err = noTemp.Run(context.Background(), request(p, domain.VariantWithTemp))
	assert.ErrorIs(t, err, ErrNoTemperatureSource)
}

func TestRunner_WithoutPersistence(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastEnd.Add(time.Hour))

	r := NewRunner(Options{Readings: f.readings})
	res, err := r.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)
	assert.True(t, res.Ready())
	assert.False(t, res.Reused)
}

func TestFeatureRows(t *testing.T) {
	f := newFixture(t)
	p := simulationPlan(t, forecastDay)
	f.seedFor(t, p, p.ForecastEnd.Add(time.Hour))

	res, err := f.runner.Run(context.Background(), request(p, domain.VariantNoTemp))
	require.NoError(t, err)

	rows := FeatureRows("run", domain.PartitionTest, res.Partitions.Test)
	require.Len(t, rows, 24)
	for i, row := range rows {
		assert.Equal(t, "run", row.RunID)
		assert.Equal(t, res.Partitions.Test.Index[i].UnixMilli(), row.TimestampMs)
		assert.Equal(t, res.Partitions.Test.Target[i], row.Target)
		assert.Len(t, row.Features, len(res.Partitions.Keys))
		hour := features.Key{Kind: features.KindHour}
		assert.Equal(t, float64(i), row.Features[hour.String()])
	}
}

func TestRunRange(t *testing.T) {
	f := newFixture(t)
	first := simulationPlan(t, forecastDay.AddDate(0, 0, -2))
	f.seedFor(t, first, forecastDay.Add(24*time.Hour))

	results, err := f.runner.RunRange(context.Background(), RangeRequest{
		CommunityID:  community,
		EndDate:      forecastDay.Add(13 * time.Hour),
		Days:         3,
		TrainDays:    DefaultTrainDays,
		Spec:         features.DefaultSpec(),
		FillLimit:    dataset.DefaultFillLimit,
		MinTrainRows: DefaultMinTrainRows,
		Workers:      4,
	})
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i, res := range results {
		day := forecastDay.AddDate(0, 0, -2+i/2)
		assert.Equal(t, day, res.Run.ForecastStart, "result %d", i)
		assert.True(t, res.Ready())
	}
	assert.Equal(t, domain.VariantNoTemp, results[0].Run.Variant)
	assert.Equal(t, domain.VariantWithTemp, results[1].Run.Variant)

	runs, err := f.runs.GetByCommunity(context.Background(), community)
	require.NoError(t, err)
	assert.Len(t, runs, 6)
}

func TestRunRange_CollectsFailures(t *testing.T) {
	f := newFixture(t)
	f.seedFor(t, simulationPlan(t, forecastDay), forecastDay.Add(24*time.Hour))
	r := NewRunner(Options{Readings: f.readings})

	results, err := r.RunRange(context.Background(), RangeRequest{
		CommunityID:  community,
		EndDate:      forecastDay,
		Days:         1,
		TrainDays:    DefaultTrainDays,
		Variants:     []domain.Variant{domain.VariantNoTemp, domain.VariantWithTemp},
		Spec:         features.DefaultSpec(),
		FillLimit:    dataset.DefaultFillLimit,
		MinTrainRows: DefaultMinTrainRows,
	})
	assert.ErrorIs(t, err, ErrNoTemperatureSource)
	require.Len(t, results, 1)
	assert.Equal(t, domain.VariantNoTemp, results[0].Run.Variant)
}

func TestRunRange_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.RunRange(context.Background(), RangeRequest{EndDate: forecastDay, Days: 0, TrainDays: 45})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = f.runner.RunRange(context.Background(), RangeRequest{EndDate: forecastDay, Days: 1, TrainDays: 0})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestRunRange_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner.RunRange(ctx, RangeRequest{
		CommunityID: community,
		EndDate:     forecastDay,
		Days:        5,
		TrainDays:   DefaultTrainDays,
		Spec:        features.DefaultSpec(),
		FillLimit:   dataset.DefaultFillLimit,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
