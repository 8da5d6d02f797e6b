package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/features"
)

// DefaultVariants are built for every backtest day.
var DefaultVariants = []domain.Variant{domain.VariantNoTemp, domain.VariantWithTemp}

// RangeRequest describes a backtest over consecutive forecast days ending at EndDate.
type RangeRequest struct {
	CommunityID  int64
	EndDate      time.Time
	Days         int
	TrainDays    int
	Variants     []domain.Variant // DefaultVariants when empty
	Spec         features.Spec
	FillLimit    int
	MinTrainRows int
	Workers      int // 1 when <= 0
}

type job struct {
	plan    Plan
	variant domain.Variant
}

// RunRange builds every (day, variant) dataset of the range with a bounded
// worker pool. Days are EndDate, EndDate-1, ... EndDate-(Days-1).
//
// Results are sorted by (forecast day, variant). Hard failures of single runs
// do not stop the others; they are joined into the returned error next to
// the successful results.
func (r *Runner) RunRange(ctx context.Context, req RangeRequest) ([]*RunResult, error) {
	if req.Days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidPlan, req.Days)
	}
	variants := req.Variants
	if len(variants) == 0 {
		variants = DefaultVariants
	}
	workers := req.Workers
	if workers <= 0 {
		workers = 1
	}

	var jobs []job
	for i := 0; i < req.Days; i++ {
		day := StartOfDay(req.EndDate).AddDate(0, 0, -i)
		plan, err := NewPlan(&day, req.TrainDays, nil)
		if err != nil {
			return nil, err
		}
		for _, v := range variants {
			jobs = append(jobs, job{plan: plan, variant: v})
		}
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	r.logger.InfoContext(ctx, "backtest started",
		slog.String("end_date", StartOfDay(req.EndDate).Format(time.DateOnly)),
		slog.Int("days", req.Days),
		slog.Int("runs", len(jobs)),
		slog.Int("workers", workers),
	)

	jobCh := make(chan job)
	var (
		mu      sync.Mutex
		results []*RunResult
		errs    []error
		wg      sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				res, err := r.Run(ctx, Request{
					CommunityID:  req.CommunityID,
					Plan:         j.plan,
					Variant:      j.variant,
					Spec:         req.Spec,
					FillLimit:    req.FillLimit,
					MinTrainRows: req.MinTrainRows,
				})

				mu.Lock()
				if err != nil {
					errs = append(errs, fmt.Errorf("%s %s: %w", j.plan.Day(), j.variant, err))
				} else {
					results = append(results, res)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	sort.Slice(results, func(i, k int) bool {
		a, b := results[i].Run, results[k].Run
		if !a.ForecastStart.Equal(b.ForecastStart) {
			return a.ForecastStart.Before(b.ForecastStart)
		}
		return a.Variant < b.Variant
	})

	return results, errors.Join(errs...)
}
