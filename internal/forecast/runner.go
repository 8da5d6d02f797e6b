package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"energy-forecast-lab/internal/dataset"
	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/features"
	"energy-forecast-lab/internal/idhash"
	"energy-forecast-lab/internal/logging"
	"energy-forecast-lab/internal/observability"
	"energy-forecast-lab/internal/storage"
	"energy-forecast-lab/internal/timeseries"
)

// ErrNoTemperatureSource is returned for a with_temp run without a temperature store.
var ErrNoTemperatureSource = errors.New("temperature variant requested without a temperature store")

// Options for creating a Runner. Only Readings is required.
type Options struct {
	Readings    storage.MeterReadingStore
	Temperature storage.TemperatureStore
	FeatureRows storage.FeatureRowStore
	Runs        storage.DatasetRunStore
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
}

// Runner builds datasets for forecast days. It holds no mutable state of its
// own, so one Runner may serve concurrent runs.
type Runner struct {
	readings    storage.MeterReadingStore
	temperature storage.TemperatureStore
	featureRows storage.FeatureRowStore
	runs        storage.DatasetRunStore
	metrics     *observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewRunner creates a new Runner.
func NewRunner(opts Options) *Runner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		readings:    opts.Readings,
		temperature: opts.Temperature,
		featureRows: opts.FeatureRows,
		runs:        opts.Runs,
		metrics:     opts.Metrics,
		logger:      logging.OrDiscard(opts.Logger),
		now:         now,
	}
}

// Request describes one dataset build.
type Request struct {
	CommunityID  int64
	Plan         Plan
	Variant      domain.Variant
	Spec         features.Spec
	FillLimit    int
	MinTrainRows int
}

// RunResult is the outcome of one dataset build.
type RunResult struct {
	Run        *domain.DatasetRun
	Plan       Plan
	Partitions *dataset.Partitions
	Assessment Assessment
	Reused     bool // run already persisted, nothing written
}

// Ready reports whether the partitions are usable.
func (r *RunResult) Ready() bool {
	return r.Run.Status == domain.RunStatusReady
}

// Run loads the series, splits, assesses and, when the run is READY, persists
// the feature rows and the run record.
//
// NOT_READY and INSUFFICIENT are returned as results with Assessment.Err set,
// not as errors. The error return is reserved for invalid requests and
// storage failures.
func (r *Runner) Run(ctx context.Context, req Request) (*RunResult, error) {
	started := r.now()

	if req.Variant != domain.VariantNoTemp && req.Variant != domain.VariantWithTemp {
		return nil, fmt.Errorf("unknown variant %q", req.Variant)
	}
	opts := dataset.Options{Spec: req.Spec, FillLimit: req.FillLimit}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if req.Plan.TrainDays <= 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}

	spec := req.Spec.Normalized()
	bounds := req.Plan.Boundaries()
	loadStart := bounds.TrainStart.Add(-time.Duration(spec.MaxWindow()) * time.Hour)

	base, err := r.loadConsumption(ctx, req.CommunityID, loadStart, bounds.TestEnd)
	if err != nil {
		return nil, err
	}

	var exo *timeseries.Series
	if req.Variant.UsesTemperature() {
		if exo, err = r.loadTemperature(ctx, req.CommunityID, loadStart, bounds.TestEnd); err != nil {
			return nil, err
		}
	}

	parts, err := dataset.Split(base, exo, bounds, opts)
	if err != nil {
		return nil, fmt.Errorf("split %s %s: %w", req.Plan.Day(), req.Variant, err)
	}

	assessment := Evaluate(parts, req.MinTrainRows)
	fingerprint := spec.Fingerprint()

	run := &domain.DatasetRun{
		RunID: idhash.ComputeRunID(req.CommunityID, req.Variant, req.Plan.Mode,
			req.Plan.TrainStart, req.Plan.ForecastStart, req.Plan.ForecastEnd, fingerprint, req.FillLimit),
		CommunityID:     req.CommunityID,
		Variant:         req.Variant,
		Mode:            req.Plan.Mode,
		Status:          assessment.Status,
		TrainStart:      req.Plan.TrainStart,
		ForecastStart:   req.Plan.ForecastStart,
		ForecastEnd:     req.Plan.ForecastEnd,
		SpecFingerprint: fingerprint,
		FillLimit:       req.FillLimit,
		FeatureCount:    len(parts.Keys),
		TrainRows:       parts.Train.Len(),
		TestRows:        parts.Test.Len(),
		TrainDropped:    parts.Stats.TrainDropped,
		TestDropped:     parts.Stats.TestDropped,
		CreatedAt:       started.UTC(),
	}

	result := &RunResult{
		Run:        run,
		Plan:       req.Plan,
		Partitions: parts,
		Assessment: assessment,
	}

	if assessment.Status == domain.RunStatusReady {
		if result.Reused, err = r.persist(ctx, run, parts); err != nil {
			return nil, err
		}
	}

	elapsed := r.now().Sub(started)
	r.record(run, elapsed)

	attrs := []any{
		slog.String("day", req.Plan.Day()),
		slog.String("variant", string(req.Variant)),
		slog.String("status", string(run.Status)),
		slog.Int("train_rows", run.TrainRows),
		slog.Int("test_rows", run.TestRows),
		slog.Int("train_dropped", run.TrainDropped),
		slog.Int("test_dropped", run.TestDropped),
		slog.String("run_id", run.RunID),
		slog.Duration("elapsed", elapsed),
	}
	switch run.Status {
	case domain.RunStatusReady:
		r.logger.InfoContext(ctx, "dataset ready", attrs...)
	case domain.RunStatusNotReady:
		r.logger.WarnContext(ctx, "forecast not ready, retry later", attrs...)
	default:
		r.logger.WarnContext(ctx, "dataset rejected", append(attrs, slog.String("reason", assessment.Err.Error()))...)
	}

	return result, nil
}

// loadConsumption reads the hourly consumption aggregate as a series.
func (r *Runner) loadConsumption(ctx context.Context, communityID int64, start, end time.Time) (*timeseries.Series, error) {
	if r.readings == nil {
		return nil, fmt.Errorf("no meter reading store configured")
	}

	t0 := time.Now()
	points, err := r.readings.HourlyConsumption(ctx, communityID, start, end)
	r.recordQuery("hourly_consumption", t0, err)
	if err != nil {
		return nil, fmt.Errorf("load consumption: %w", err)
	}

	s, err := seriesFromHourly(points)
	if err != nil {
		return nil, fmt.Errorf("load consumption: %w", err)
	}
	s.Name = "consumption"
	return s, nil
}

// loadTemperature reads the hourly temperature as a series.
func (r *Runner) loadTemperature(ctx context.Context, communityID int64, start, end time.Time) (*timeseries.Series, error) {
	if r.temperature == nil {
		return nil, ErrNoTemperatureSource
	}

	t0 := time.Now()
	points, err := r.temperature.HourlyTemperature(ctx, communityID, start, end)
	r.recordQuery("hourly_temperature", t0, err)
	if err != nil {
		return nil, fmt.Errorf("load temperature: %w", err)
	}

	s, err := seriesFromHourly(points)
	if err != nil {
		return nil, fmt.Errorf("load temperature: %w", err)
	}
	s.Name = "temperature"
	return s, nil
}

func seriesFromHourly(points []domain.HourlyValue) (*timeseries.Series, error) {
	timestamps := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		timestamps[i] = p.Hour
		values[i] = p.Value
	}
	return timeseries.New(timestamps, values)
}

// persist writes feature rows then the run record. A run whose ID is already
// stored was built from identical inputs and is left untouched. Feature rows
// without a run record are kept and the record is written.
func (r *Runner) persist(ctx context.Context, run *domain.DatasetRun, parts *dataset.Partitions) (bool, error) {
	if r.runs != nil {
		if _, err := r.runs.GetByID(ctx, run.RunID); err == nil {
			return true, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("look up run %s: %w", run.RunID, err)
		}
	}

	if r.featureRows != nil {
		rows := FeatureRows(run.RunID, domain.PartitionTrain, parts.Train)
		rows = append(rows, FeatureRows(run.RunID, domain.PartitionTest, parts.Test)...)

		t0 := time.Now()
		err := r.featureRows.InsertBulk(ctx, rows)
		r.recordQuery("insert_feature_rows", t0, err)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// Left by an attempt whose run insert failed. Batches are
			// all-or-nothing and the rows are determined by the run ID.
			r.logger.WarnContext(ctx, "feature rows already stored, completing run record",
				slog.String("run_id", run.RunID))
		case err != nil:
			return false, fmt.Errorf("save feature rows: %w", err)
		case r.metrics != nil:
			r.metrics.FeatureRowsSaved.Add(float64(len(rows)))
		}
	}

	if r.runs != nil {
		if err := r.runs.Insert(ctx, run); err != nil {
			return false, fmt.Errorf("save run %s: %w", run.RunID, err)
		}
	}
	return false, nil
}

// FeatureRows flattens a partition into storable rows keyed by feature name.
func FeatureRows(runID, partition string, p dataset.Partition) []*domain.FeatureRow {
	rows := make([]*domain.FeatureRow, p.Len())
	for i := range rows {
		values := p.Features.Row(i)
		named := make(map[string]float64, len(values))
		for j, k := range p.Features.Keys {
			named[k.String()] = values[j]
		}
		rows[i] = &domain.FeatureRow{
			RunID:       runID,
			Partition:   partition,
			TimestampMs: p.Index[i].UnixMilli(),
			Features:    named,
			Target:      p.Target[i],
		}
	}
	return rows
}

func (r *Runner) record(run *domain.DatasetRun, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordDatasetRun(string(run.Variant), string(run.Status), elapsed.Seconds(),
		run.TrainRows, run.TestRows, run.TrainDropped, run.TestDropped)
	if run.Status == domain.RunStatusReady {
		r.metrics.LastSuccessfulRun.SetToCurrentTime()
	}
}

func (r *Runner) recordQuery(operation string, started time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordDBQuery("store", operation, time.Since(started).Seconds(), err)
}
