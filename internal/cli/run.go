package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/crosslang/sdkbench/pkg/envspec"
	"github.com/crosslang/sdkbench/pkg/lang"
	"github.com/crosslang/sdkbench/pkg/matrix"
	"github.com/crosslang/sdkbench/pkg/report"
	"github.com/crosslang/sdkbench/pkg/runner"
)

// runOpts holds the command-line flags for the run command.
type runOpts struct {
	rulesPath   string
	refresh     bool
	workers     int
	cellTimeout time.Duration
	runTimeout  time.Duration
	portMin     int
	portMax     int
	workDir     string
	stateDir    string
	metricsAddr string
}

// newRunCmd creates the run command: execute the full pipeline and
// persist the report. The command fails unless every scheduled cell
// passed, so CI can gate on the exit status.
func newRunCmd() *cobra.Command {
	opts := runOpts{
		workers:     4,
		cellTimeout: 5 * time.Minute,
		runTimeout:  30 * time.Minute,
		portMin:     18000,
		portMax:     19000,
	}

	cmd := &cobra.Command{
		Use:   "run [language...]",
		Short: "Execute the compatibility matrix and persist the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(cmd.Context(), &opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.rulesPath, "rules", "r", "", "compatibility rules file (TOML)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the release cache")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "concurrent cells")
	cmd.Flags().DurationVar(&opts.cellTimeout, "cell-timeout", opts.cellTimeout, "per-cell wall-clock deadline")
	cmd.Flags().DurationVar(&opts.runTimeout, "run-timeout", opts.runTimeout, "whole-run safety deadline")
	cmd.Flags().IntVar(&opts.portMin, "port-min", opts.portMin, "lowest host port to allocate")
	cmd.Flags().IntVar(&opts.portMax, "port-max", opts.portMax, "first host port above the range")
	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "directory for generated environments (default: temp dir)")
	cmd.Flags().StringVar(&opts.stateDir, "state-dir", "", "directory for reports and edges (default: ~/.sdkbench)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address for the run's duration")

	return cmd
}

func runMatrix(ctx context.Context, opts *runOpts, languages []string) error {
	logger := loggerFromContext(ctx)
	runID := uuid.NewString()
	logger.Info("starting run", "run_id", runID)

	ctx, cancel := context.WithTimeout(ctx, opts.runTimeout)
	defer cancel()

	rules, err := matrix.LoadRules(opts.rulesPath, lang.Default())
	if err != nil {
		return err
	}

	snap := refreshCatalog(ctx, buildCatalog(ctx), languages, opts.refresh)
	cells, warnings, err := matrix.Build(snap, rules)
	if err != nil {
		return err
	}
	warnings = append(snap.Warnings, warnings...)
	logger.Info("matrix built", "cells", len(cells))

	ports, err := envspec.NewPortAllocator(opts.portMin, opts.portMax)
	if err != nil {
		return err
	}
	workDir := opts.workDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), appName)
	}

	if opts.metricsAddr != "" {
		go serveMetrics(ctx, opts.metricsAddr, logger)
	}

	p := newProgress(logger)
	r := &runner.Runner{
		Launcher:    runner.NewComposeLauncher(workDir, logger),
		Generator:   envspec.NewGenerator(lang.Default(), opts.cellTimeout),
		Ports:       ports,
		Metrics:     runner.NewMetrics(prometheus.DefaultRegisterer),
		Logger:      logger,
		Workers:     opts.workers,
		CellTimeout: opts.cellTimeout,
	}
	runs := r.Run(ctx, cells)
	p.done(fmt.Sprintf("Executed %d cells", len(cells)))

	rep := report.Aggregate(runID, cells, runs, warnings)

	store, err := openStore(ctx, opts.stateDir)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if err := store.SaveReport(ctx, rep); err != nil {
		return err
	}
	if err := store.UpsertEdges(ctx, rep.Edges()); err != nil {
		return err
	}

	s := rep.Summary
	logger.Info("run complete", "run_id", runID,
		"passed", s.Passed, "failed", s.Failed, "timed_out", s.TimedOut,
		"errored", s.Errored, "untested", s.Untested)

	if !rep.AllPassed() {
		return fmt.Errorf("%d of %d cells did not pass", s.Total-s.Passed, s.Total)
	}
	return nil
}

// serveMetrics exposes the default Prometheus registry over HTTP until
// ctx is cancelled, so the runner's gauges and histograms can be scraped
// while cells execute.
func serveMetrics(ctx context.Context, addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics endpoint failed", "error", err)
	}
}

// openStore resolves the state directory and opens the configured store.
func openStore(ctx context.Context, stateDir string) (report.Store, error) {
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		stateDir = filepath.Join(home, "."+appName)
	}
	return buildStore(ctx, stateDir)
}
