// Command nnquery builds or loads a nearest-neighbor index and runs a batch
// KNN or range search over Parquet point files.
//
// It is configured through NNQUERY_* environment variables, optionally read
// from a .env file:
//
//	NNQUERY_POINTS=points.parquet NNQUERY_K=5 nnquery
//	NNQUERY_INDEX=points.nnix NNQUERY_QUERIES=queries.parquet NNQUERY_MODE=range NNQUERY_THRESHOLD=0.5 nnquery
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/persist"
	"github.com/hupe1980/neighbors/pointio"
	"github.com/hupe1980/neighbors/pointset"
	"github.com/hupe1980/neighbors/prom"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nnquery: invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := NewLogger(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := prom.NewCollector(reg)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Starting metrics server", "address", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Failed to start metrics server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := run(ctx, &cfg, logger, collector); err != nil {
		logger.Error("nnquery failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run executes one configured search and writes its results.
func run(ctx context.Context, cfg *Config, logger *neighbors.Logger, mc neighbors.MetricsCollector) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	idx, err := openIndex(ctx, cfg, logger, mc)
	if err != nil {
		return err
	}

	if cfg.SaveIndexPath != "" {
		c, _ := persist.ParseCompression(cfg.IndexCompression)
		if err := persist.SaveFile(cfg.SaveIndexPath, idx, persist.WithCompression(c)); err != nil {
			return fmt.Errorf("save index: %w", err)
		}
		logger.Info("Index saved", "path", cfg.SaveIndexPath, "compression", c.String())
	}

	var queries *pointset.PointSet
	if cfg.QueriesPath != "" {
		queries, err = pointio.ReadPoints(cfg.QueriesPath)
		if err != nil {
			return fmt.Errorf("read queries: %w", err)
		}
	}

	start := time.Now()
	res, err := search(ctx, cfg, idx, queries, logger, mc)
	if err != nil {
		return err
	}
	logger.Info("Search finished",
		"mode", cfg.Mode,
		"kind", idx.Kind().String(),
		"rows", res.Len(),
		"duration", time.Since(start),
	)

	if cfg.OutputPath != "" {
		if err := pointio.WriteResults(cfg.OutputPath, res); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		logger.Info("Results written", "path", cfg.OutputPath)
	}
	return nil
}

// openIndex loads the persisted index if one is configured and builds one
// from the points file otherwise.
func openIndex(ctx context.Context, cfg *Config, logger *neighbors.Logger, mc neighbors.MetricsCollector) (index.Index, error) {
	if cfg.IndexPath != "" {
		idx, err := persist.LoadFile(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("load index: %w", err)
		}
		logger.Info("Index loaded", "path", cfg.IndexPath, "kind", idx.Kind().String(), "n", idx.Len(), "dim", idx.Dim())
		return idx, nil
	}

	points, err := pointio.ReadPoints(cfg.PointsPath)
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	kind, err := index.ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	metric, err := distance.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	return neighbors.BuildIndex(ctx, points, kind,
		neighbors.WithMetric(metric),
		neighbors.WithSeed(cfg.Seed),
		neighbors.WithLogger(logger),
		neighbors.WithMetricsCollector(mc),
	)
}

func search(ctx context.Context, cfg *Config, idx index.Index, queries *pointset.PointSet, logger *neighbors.Logger, mc neighbors.MetricsCollector) (*neighbors.Results, error) {
	opts := []neighbors.Option{
		neighbors.WithParallel(neighbors.Parallel{Workers: cfg.Workers, ChunkSize: cfg.ChunkSize}),
		neighbors.WithLogger(logger),
		neighbors.WithMetricsCollector(mc),
	}
	if cfg.CountOnly {
		opts = append(opts, neighbors.WithoutIndex(), neighbors.WithoutDistance())
	}
	if cfg.RawIndex {
		opts = append(opts, neighbors.WithRawIndex())
	}

	switch strings.ToLower(cfg.Mode) {
	case "knn":
		if queries != nil {
			return neighbors.QueryKNN(ctx, idx, queries, cfg.K, opts...)
		}
		return neighbors.FindKNN(ctx, idx, cfg.K, opts...)
	case "range":
		threshold := neighbors.Scalar(cfg.Threshold)
		if queries != nil {
			return neighbors.RangeQuery(ctx, idx, queries, threshold, opts...)
		}
		return neighbors.RangeFind(ctx, idx, threshold, opts...)
	default:
		return nil, ErrInvalidMode
	}
}
