// Package app holds the wiring shared by the commands: store selection,
// the metrics endpoint and signal handling.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"energy-forecast-lab/internal/config"
	"energy-forecast-lab/internal/observability"
	"energy-forecast-lab/internal/storage"
	chstore "energy-forecast-lab/internal/storage/clickhouse"
	"energy-forecast-lab/internal/storage/memory"
	"energy-forecast-lab/internal/storage/migrations"
	pgstore "energy-forecast-lab/internal/storage/postgres"
)

// Stores groups the stores used by the commands.
type Stores struct {
	Readings    storage.MeterReadingStore
	Temperature storage.TemperatureStore
	FeatureRows storage.FeatureRowStore // nil when feature rows are not persisted
	Runs        storage.DatasetRunStore
	Memory      bool

	closers []func()
}

// MemoryStores returns in-memory implementations of every store.
func MemoryStores() *Stores {
	return &Stores{
		Readings:    memory.NewMeterReadingStore(),
		Temperature: memory.NewTemperatureStore(),
		FeatureRows: memory.NewFeatureRowStore(),
		Runs:        memory.NewDatasetRunStore(),
		Memory:      true,
	}
}

// OpenStores connects to PostgreSQL and, when CLICKHOUSE_DSN is set, to
// ClickHouse, applying migrations to both.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required (use --use-memory for in-memory storage)")
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	s := &Stores{
		Readings:    pgstore.NewMeterReadingStore(pool),
		Temperature: pgstore.NewTemperatureStore(pool),
		Runs:        pgstore.NewDatasetRunStore(pool),
		closers:     []func(){pool.Close},
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		s.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.InfoContext(ctx, "postgres ready")

	if cfg.ClickhouseDSN == "" {
		logger.WarnContext(ctx, "CLICKHOUSE_DSN not set, feature rows will not be persisted")
		return s, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	s.FeatureRows = chstore.NewFeatureRowStore(conn)
	s.closers = append(s.closers, func() { _ = conn.Close() })
	logger.InfoContext(ctx, "clickhouse ready")

	return s, nil
}

// Close releases every connection, last opened first.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewMetricsServer returns the /metrics and /health server, or nil when addr is empty.
func NewMetricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ServeMetrics starts the metrics server in the background. The returned
// func shuts it down.
func ServeMetrics(addr string, logger *slog.Logger) func() {
	srv := NewMetricsServer(addr)
	if srv == nil {
		return func() {}
	}

	go func() {
		logger.Info("starting metrics server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. A second
// signal exits immediately.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()

		sig = <-sigCh
		logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
		os.Exit(1)
	}()

	return ctx, cancel
}
