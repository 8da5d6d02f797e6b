package reporting

import (
	"context"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/forecast"
	"energy-forecast-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore storage.DatasetRunStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.DatasetRunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of every stored run of a community.
// Only READY runs are stored, so the report has no rejections.
func (g *Generator) Generate(ctx context.Context, communityID int64) (*Report, error) {
	runs, err := g.runStore.GetByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	rows := make([]RunRow, len(runs))
	for i, run := range runs {
		rows[i] = runRow(run)
	}
	return newReport(g.now(), communityID, rows, nil), nil
}

// FromResults builds a report from in-memory run results, rejected runs included.
func FromResults(generatedAt time.Time, communityID int64, results []*forecast.RunResult) *Report {
	rows := make([]RunRow, 0, len(results))
	var rejections []RejectionRow
	for _, res := range results {
		row := runRow(res.Run)
		rows = append(rows, row)
		if res.Ready() {
			continue
		}
		for _, check := range res.Assessment.Checks {
			if check.Pass {
				continue
			}
			rejections = append(rejections, RejectionRow{
				Day:       row.Day,
				Variant:   row.Variant,
				Check:     check.Name,
				Threshold: check.Threshold,
				Actual:    check.Actual,
			})
		}
	}
	return newReport(generatedAt, communityID, rows, rejections)
}

func runRow(run *domain.DatasetRun) RunRow {
	return RunRow{
		Day:          run.ForecastStart.UTC().Format(time.DateOnly),
		Variant:      string(run.Variant),
		Mode:         string(run.Mode),
		Status:       string(run.Status),
		FeatureCount: run.FeatureCount,
		TrainRows:    run.TrainRows,
		TestRows:     run.TestRows,
		TrainDropped: run.TrainDropped,
		TestDropped:  run.TestDropped,
		RunID:        run.RunID,
	}
}

func newReport(generatedAt time.Time, communityID int64, rows []RunRow, rejections []RejectionRow) *Report {
	sortRunRows(rows)
	sort.SliceStable(rejections, func(i, j int) bool {
		if rejections[i].Day != rejections[j].Day {
			return rejections[i].Day < rejections[j].Day
		}
		return rejections[i].Variant < rejections[j].Variant
	})

	return &Report{
		GeneratedAt: generatedAt,
		CommunityID: communityID,
		Summary:     summarize(rows),
		Runs:        rows,
		Rejections:  rejections,
	}
}

// summarize counts statuses and averages partition sizes of READY runs.
func summarize(rows []RunRow) Summary {
	s := Summary{TotalRuns: len(rows)}
	var trainRows, testRows []float64
	for _, r := range rows {
		switch domain.RunStatus(r.Status) {
		case domain.RunStatusReady:
			s.Ready++
			trainRows = append(trainRows, float64(r.TrainRows))
			testRows = append(testRows, float64(r.TestRows))
		case domain.RunStatusNotReady:
			s.NotReady++
		case domain.RunStatusInsufficient:
			s.Insufficient++
		}
	}
	if len(rows) > 0 {
		s.FirstDay = rows[0].Day
		s.LastDay = rows[len(rows)-1].Day
	}
	if len(trainRows) > 0 {
		s.MeanTrainRows = stat.Mean(trainRows, nil)
		s.MeanTestRows = stat.Mean(testRows, nil)
	}
	return s
}

// sortRunRows orders rows by (day, variant).
func sortRunRows(rows []RunRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day < rows[j].Day
		}
		return rows[i].Variant < rows[j].Variant
	})
}
