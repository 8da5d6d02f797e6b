package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
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
	date := flag.String("date", "", "Forecast day YYYY-MM-DD (empty: tomorrow UTC, production mode)")
	variants := flag.String("variants", "no_temp,with_temp", "Comma-separated variants: no_temp, with_temp")
	communityID := flag.Int64("community-id", cfg.CommunityID, "Energy community")
	trainDays := flag.Int("train-days", cfg.TrainDays, "Training window in days")
	fillLimit := flag.Int("fill-limit", cfg.FillLimit, "Max consecutive hours forward-filled in history+train")
	minTrainRows := flag.Int("min-train-rows", cfg.MinTrainRows, "Minimum complete training rows")
	outDir := flag.String("out-dir", "", "Write <day>_<variant>_{train,test}.csv here (empty to skip)")
	meterCSV := flag.String("meter-csv", "", "Meter export loaded first (with --use-memory)")
	temperatureCSV := flag.String("temperature-csv", "", "Temperature export loaded first (with --use-memory)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger, flush := logging.New(cfg.IsProd())
	defer func() { _ = flush() }()
	logger = logger.With(slog.String("cmd", "dataset"))

	cfg.CommunityID = *communityID
	cfg.TrainDays = *trainDays
	cfg.FillLimit = *fillLimit
	cfg.MinTrainRows = *minTrainRows

	err = run(cfg, logger, options{
		date:           *date,
		variants:       *variants,
		outDir:         *outDir,
		meterCSV:       *meterCSV,
		temperatureCSV: *temperatureCSV,
		useMemory:      *useMemory,
		metricsAddr:    *metricsAddr,
	})
	if err != nil {
		logger.Error("dataset failed", slog.Any("error", err))
		_ = flush()
		os.Exit(1)
	}
}

type options struct {
	date           string
	variants       string
	outDir         string
	meterCSV       string
	temperatureCSV string
	useMemory      bool
	metricsAddr    string
}

func run(cfg *config.Config, logger *slog.Logger, opts options) error {
	variants, err := domain.ParseVariants(opts.variants)
	if err != nil {
		return err
	}

	var day *time.Time
	if opts.date != "" {
		d, err := time.Parse(time.DateOnly, opts.date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		day = &d
	}
	plan, err := forecast.NewPlan(day, cfg.TrainDays, nil)
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

	var results []*forecast.RunResult
	var errs []error
	for _, v := range variants {
		res, err := runner.Run(ctx, forecast.Request{
			CommunityID:  cfg.CommunityID,
			Plan:         plan,
			Variant:      v,
			Spec:         cfg.Spec,
			FillLimit:    cfg.FillLimit,
			MinTrainRows: cfg.MinTrainRows,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v, err))
			continue
		}
		results = append(results, res)

		if opts.outDir != "" && res.Ready() {
			if err := writePartitions(opts.outDir, res); err != nil {
				errs = append(errs, err)
			}
		}
	}

	fmt.Print(reporting.RenderMarkdown(reporting.FromResults(time.Now().UTC(), cfg.CommunityID, results)))
	return errors.Join(errs...)
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

// writePartitions writes the train and test partitions of a READY run.
func writePartitions(dir string, res *forecast.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	prefix := fmt.Sprintf("%s_%s", res.Plan.Day(), res.Run.Variant)

	parts := map[string]string{
		domain.PartitionTrain: reporting.RenderPartitionCSV(res.Partitions.Train, res.Partitions.Keys),
		domain.PartitionTest:  reporting.RenderPartitionCSV(res.Partitions.Test, res.Partitions.Keys),
	}
	for name, content := range parts {
		path := filepath.Join(dir, prefix+"_"+name+".csv")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
