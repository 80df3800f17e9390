package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/crosslang/sdkbench/pkg/envspec"
	"github.com/crosslang/sdkbench/pkg/errors"
	"github.com/crosslang/sdkbench/pkg/matrix"
)

const (
	defaultWorkers     = 4
	defaultCellTimeout = 5 * time.Minute
	teardownTimeout    = 60 * time.Second
)

// Runner drives matrix cells through their lifecycle on a bounded worker
// pool. A crash or timeout inside one cell's environment never cancels a
// sibling; cancelling the passed context stops admission of new cells
// and lets in-flight cells tear down and reach Done before Run returns.
//
// Zero-value fields get sensible defaults on the first Run call.
type Runner struct {
	Launcher  Launcher
	Generator *envspec.Generator
	Ports     *envspec.PortAllocator
	Prober    ReadinessProber
	Metrics   *Metrics
	Logger    *log.Logger

	Workers     int
	CellTimeout time.Duration
	Host        string
}

// Run executes every cell and returns one run record per cell, in input
// order. Cells never admitted due to cancellation remain Pending.
func (r *Runner) Run(ctx context.Context, cells []matrix.Cell) []*Run {
	r.setDefaults()

	runs := make([]*Run, len(cells))
	byID := make(map[string]*Run, len(cells))
	for i, cell := range cells {
		runs[i] = NewRun(cell.ID)
		byID[cell.ID] = runs[i]
	}

	jobs := make(chan matrix.Cell)
	go func() {
		defer close(jobs)
		for _, cell := range cells {
			// checked before the send: when a worker is already
			// blocked receiving, select alone would pick either
			// branch at random after cancellation
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- cell:
			}
		}
	}()

	var wg sync.WaitGroup
	for range r.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cell := range jobs {
				r.execute(ctx, cell, byID[cell.ID])
			}
		}()
	}
	wg.Wait()
	return runs
}

func (r *Runner) execute(ctx context.Context, cell matrix.Cell, run *Run) {
	// a cell handed off concurrently with cancellation stays Pending
	if ctx.Err() != nil {
		return
	}

	logger := r.Logger.With("cell", cell.ID, "pair", cell.Key())
	r.Metrics.CellsRunning.Inc()
	defer r.Metrics.CellsRunning.Dec()

	_ = run.To(StateStartingServer)

	ports, err := r.Ports.Allocate(cell.ID)
	if err != nil {
		run.fail(StateFailed, errors.GetCode(err), err)
		r.finishWithoutEnv(run, logger)
		return
	}
	spec, err := r.Generator.SpecFor(cell, ports)
	if err != nil {
		run.fail(StateFailed, errors.ErrCodeEnvStart, err)
		r.releasePorts(cell.ID, logger)
		r.finishWithoutEnv(run, logger)
		return
	}

	cellCtx, cancel := context.WithTimeout(ctx, r.CellTimeout)
	defer cancel()

	logger.Info("cell starting", "server_port", ports.Server, "client_port", ports.Client)
	r.runStages(cellCtx, run, spec, logger)
	r.teardown(run, spec, logger)
}

// runStages advances the run from StartingServer to a terminal outcome.
func (r *Runner) runStages(ctx context.Context, run *Run, spec *envspec.Spec, logger *log.Logger) {
	handle, err := r.Launcher.StartServer(ctx, spec)
	if err != nil {
		r.failStage(ctx, run, errors.ErrCodeEnvStart, err)
		return
	}
	run.LogRef = handle.LogRef

	_ = run.To(StateWaitingReady)
	if err := r.Prober.WaitReady(ctx, spec.ReadyURL(r.Host)); err != nil {
		if errors.Is(err, errors.ErrCodeReadinessTimeout) {
			run.fail(StateTimedOut, errors.ErrCodeReadinessTimeout, err)
			return
		}
		r.failStage(ctx, run, errors.ErrCodeReadinessTimeout, err)
		return
	}

	_ = run.To(StateRunningClient)
	res, err := r.Launcher.StartClient(ctx, spec)
	if res.LogRef != "" {
		run.LogRef = res.LogRef
	}
	switch {
	case err != nil:
		r.failStage(ctx, run, errors.ErrCodeEnvStart, err)
	case res.ExitCode == 0:
		_ = run.To(StatePassed)
	default:
		run.fail(StateFailed, errors.ErrCodeProtocol,
			fmt.Errorf("client exited with status %d", res.ExitCode))
	}
}

// failStage records a stage failure, forcing TIMEOUT when the cell's
// deadline expired mid-stage.
func (r *Runner) failStage(ctx context.Context, run *Run, code errors.Code, err error) {
	if ctx.Err() == context.DeadlineExceeded {
		run.fail(StateTimedOut, code, err)
		return
	}
	run.fail(StateFailed, code, err)
}

// teardown terminates the environment and releases the cell's ports.
// The Teardown state transition doubles as the exactly-once guard: it is
// only legal from a terminal outcome state.
func (r *Runner) teardown(run *Run, spec *envspec.Spec, logger *log.Logger) {
	if err := run.To(StateTeardown); err != nil {
		return
	}

	// teardown must proceed even when the cell deadline or the whole
	// run was cancelled
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := r.Launcher.Teardown(ctx, spec); err != nil {
		run.TeardownError = err.Error()
		logger.Warn("teardown failed", "error", err)
	}
	r.releasePorts(spec.Cell.ID, logger)

	_ = run.To(StateDone)
	r.Metrics.observeRun(run)
	logger.Info("cell finished", "outcome", run.Outcome, "duration", time.Since(run.StartedAt))
}

// finishWithoutEnv drives a run that never started an environment
// through Teardown to Done so every admitted cell terminates.
func (r *Runner) finishWithoutEnv(run *Run, logger *log.Logger) {
	_ = run.To(StateTeardown)
	_ = run.To(StateDone)
	r.Metrics.observeRun(run)
	logger.Warn("cell aborted before start", "error", run.Error)
}

func (r *Runner) releasePorts(cellID string, logger *log.Logger) {
	if err := r.Ports.Release(cellID); err != nil {
		logger.Warn("port release failed", "error", err)
	}
}

func (r *Runner) setDefaults() {
	if r.Workers <= 0 {
		r.Workers = defaultWorkers
	}
	if r.CellTimeout <= 0 {
		r.CellTimeout = defaultCellTimeout
	}
	if r.Host == "" {
		r.Host = "localhost"
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	if r.Metrics == nil {
		r.Metrics = NewMetrics(nil)
	}
	if r.Prober == nil {
		r.Prober = NewProber(30, 2*time.Second)
	}
}
