package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"energy-forecast-lab/internal/app"
	"energy-forecast-lab/internal/config"
	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/forecast"
	"energy-forecast-lab/internal/ingestion"
	"energy-forecast-lab/internal/logging"
	"energy-forecast-lab/internal/observability"
	"energy-forecast-lab/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	endDate := flag.String("end-date", "", "Last forecast day YYYY-MM-DD (required)")
	days := flag.Int("days", 30, "Number of consecutive forecast days ending at --end-date")
	workers := flag.Int("workers", 4, "Parallel dataset builds")
	variants := flag.String("variants", "no_temp,with_temp", "Comma-separated variants: no_temp, with_temp")
	communityID := flag.Int64("community-id", cfg.CommunityID, "Energy community")
	trainDays := flag.Int("train-days", cfg.TrainDays, "Training window in days")
	fillLimit := flag.Int("fill-limit", cfg.FillLimit, "Max consecutive hours forward-filled in history+train")
	minTrainRows := flag.Int("min-train-rows", cfg.MinTrainRows, "Minimum complete training rows")
	reportPath := flag.String("report", "", "Write the markdown report here (default stdout)")
	csvPath := flag.String("csv", "", "Write the run table as CSV here")
	meterCSV := flag.String("meter-csv", "", "Meter export loaded first (with --use-memory)")
	temperatureCSV := flag.String("temperature-csv", "", "Temperature export loaded first (with --use-memory)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger, flush := logging.New(cfg.IsProd())
	defer func() { _ = flush() }()
	logger = logger.With(slog.String("cmd", "backtest"))

	// Validate required flags
	if *endDate == "" {
		logger.Error("--end-date is required")
		os.Exit(2)
	}

	cfg.CommunityID = *communityID
	cfg.TrainDays = *trainDays
	cfg.FillLimit = *fillLimit
	cfg.MinTrainRows = *minTrainRows

	err = run(cfg, logger, options{
		endDate:        *endDate,
		days:           *days,
		workers:        *workers,
		variants:       *variants,
		reportPath:     *reportPath,
		csvPath:        *csvPath,
		meterCSV:       *meterCSV,
		temperatureCSV: *temperatureCSV,
		useMemory:      *useMemory,
		metricsAddr:    *metricsAddr,
	})
	if err != nil {
		logger.Error("backtest failed", slog.Any("error", err))
		_ = flush()
		os.Exit(1)
	}
}

type options struct {
	endDate        string
	days           int
	workers        int
	variants       string
	reportPath     string
	csvPath        string
	meterCSV       string
	temperatureCSV string
	useMemory      bool
	metricsAddr    string
}

func run(cfg *config.Config, logger *slog.Logger, opts options) error {
	end, err := time.Parse(time.DateOnly, opts.endDate)
	if err != nil {
		return fmt.Errorf("--end-date: %w", err)
	}
	variants, err := domain.ParseVariants(opts.variants)
	if err != nil {
		return err
	}

	ctx, cancel := app.SignalContext(logger)
	defer cancel()

	stopMetrics := app.ServeMetrics(opts.metricsAddr, logger)
	defer stopMetrics()

	stores, err := openStores(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer stores.Close()

	runner := forecast.NewRunner(forecast.Options{
		Readings:    stores.Readings,
		Temperature: stores.Temperature,
		FeatureRows: stores.FeatureRows,
		Runs:        stores.Runs,
		Metrics:     observability.NewMetrics("", nil),
		Logger:      logger,
	})

	results, runErr := runner.RunRange(ctx, forecast.RangeRequest{
		CommunityID:  cfg.CommunityID,
		EndDate:      end,
		Days:         opts.days,
		TrainDays:    cfg.TrainDays,
		Variants:     variants,
		Spec:         cfg.Spec,
		FillLimit:    cfg.FillLimit,
		MinTrainRows: cfg.MinTrainRows,
		Workers:      opts.workers,
	})

	report := reporting.FromResults(time.Now().UTC(), cfg.CommunityID, results)
	if err := output(opts.reportPath, reporting.RenderMarkdown(report)); err != nil {
		return err
	}
	if opts.csvPath != "" {
		if err := output(opts.csvPath, reporting.RenderRunsCSV(report.Runs)); err != nil {
			return err
		}
	}

	logger.Info("backtest complete",
		slog.Int("runs", report.Summary.TotalRuns),
		slog.Int("ready", report.Summary.Ready),
		slog.Int("not_ready", report.Summary.NotReady),
		slog.Int("insufficient", report.Summary.Insufficient),
	)
	return runErr
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts options) (*app.Stores, error) {
	if !opts.useMemory {
		return app.OpenStores(ctx, cfg, logger)
	}

	stores := app.MemoryStores()
	bfOpts := ingestion.BackfillOptions{
		MeterStore:       stores.Readings,
		TemperatureStore: stores.Temperature,
		Logger:           logger,
	}
	if opts.meterCSV != "" {
		bfOpts.MeterSource = ingestion.NewCSVMeterSource(opts.meterCSV, cfg.CommunityID)
	}
	if opts.temperatureCSV != "" {
		bfOpts.TemperatureSource = ingestion.NewCSVTemperatureSource(opts.temperatureCSV, cfg.CommunityID)
	}
	if _, err := ingestion.NewBackfiller(bfOpts).BackfillRange(ctx, time.Time{}, time.Time{}); err != nil {
		return nil, fmt.Errorf("load exports: %w", err)
	}
	return stores, nil
}

func output(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
