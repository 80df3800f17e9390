package runner

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/crosslang/sdkbench/pkg/envspec"
	"github.com/crosslang/sdkbench/pkg/errors"
	"github.com/crosslang/sdkbench/pkg/lang"
	"github.com/crosslang/sdkbench/pkg/matrix"
)

// fakeLauncher scripts per-cell behavior and counts teardowns.
type fakeLauncher struct {
	mu        sync.Mutex
	serverErr map[string]error
	clientErr map[string]error
	exitCode  map[string]int
	delay     time.Duration
	teardowns map[string]int
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		serverErr: make(map[string]error),
		clientErr: make(map[string]error),
		exitCode:  make(map[string]int),
		teardowns: make(map[string]int),
	}
}

func (f *fakeLauncher) StartServer(ctx context.Context, spec *envspec.Spec) (Handle, error) {
	if err := f.serverErr[spec.Cell.ID]; err != nil {
		return Handle{}, err
	}
	return Handle{LogRef: "server-" + spec.Cell.ID}, nil
}

func (f *fakeLauncher) StartClient(ctx context.Context, spec *envspec.Spec) (Result, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := f.clientErr[spec.Cell.ID]; err != nil {
		return Result{}, err
	}
	return Result{ExitCode: f.exitCode[spec.Cell.ID], LogRef: "client-" + spec.Cell.ID}, nil
}

func (f *fakeLauncher) Teardown(ctx context.Context, spec *envspec.Spec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns[spec.Cell.ID]++
	return nil
}

func (f *fakeLauncher) teardownCount(cellID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teardowns[cellID]
}

// fakeProber scripts readiness per cell port.
type fakeProber struct {
	err error
}

func (p *fakeProber) WaitReady(ctx context.Context, url string) error { return p.err }

func testRunner(t *testing.T, launcher Launcher, prober ReadinessProber) *Runner {
	t.Helper()
	ports, err := envspec.NewPortAllocator(19000, 19500)
	if err != nil {
		t.Fatalf("NewPortAllocator: %v", err)
	}
	return &Runner{
		Launcher:    launcher,
		Generator:   envspec.NewGenerator(lang.Default(), time.Minute),
		Ports:       ports,
		Prober:      prober,
		Logger:      log.NewWithOptions(io.Discard, log.Options{}),
		Workers:     3,
		CellTimeout: 5 * time.Second,
	}
}

func testCells(n int) []matrix.Cell {
	cells := make([]matrix.Cell, n)
	for i := range cells {
		cells[i] = matrix.NewCell("python", fmt.Sprintf("1.%d.0", i), "python", "1.0.0")
	}
	return cells
}

func TestRunnerAllPass(t *testing.T) {
	launcher := newFakeLauncher()
	r := testRunner(t, launcher, &fakeProber{})
	cells := testCells(5)

	runs := r.Run(context.Background(), cells)

	if len(runs) != len(cells) {
		t.Fatalf("got %d runs, want %d", len(runs), len(cells))
	}
	for i, run := range runs {
		if run.State != StateDone {
			t.Errorf("run %d state = %s, want DONE", i, run.State)
		}
		if run.Outcome != StatePassed {
			t.Errorf("run %d outcome = %s, want PASSED", i, run.Outcome)
		}
		if got := launcher.teardownCount(run.CellID); got != 1 {
			t.Errorf("cell %s torn down %d times, want 1", run.CellID, got)
		}
	}
	if r.Ports.InUse() != 0 {
		t.Errorf("ports still held after run: %d", r.Ports.InUse())
	}
}

func TestRunnerClientExitFailure(t *testing.T) {
	launcher := newFakeLauncher()
	cells := testCells(1)
	launcher.exitCode[cells[0].ID] = 3
	r := testRunner(t, launcher, &fakeProber{})

	runs := r.Run(context.Background(), cells)

	if runs[0].Outcome != StateFailed {
		t.Errorf("outcome = %s, want FAILED", runs[0].Outcome)
	}
	if runs[0].ErrorCode != errors.ErrCodeProtocol {
		t.Errorf("code = %s, want PROTOCOL_ERROR", runs[0].ErrorCode)
	}
	if runs[0].State != StateDone {
		t.Errorf("state = %s, want DONE", runs[0].State)
	}
}

func TestRunnerReadinessTimeout(t *testing.T) {
	launcher := newFakeLauncher()
	cells := testCells(1)
	prober := &fakeProber{err: errors.New(errors.ErrCodeReadinessTimeout, "not ready")}
	r := testRunner(t, launcher, prober)

	runs := r.Run(context.Background(), cells)

	if runs[0].Outcome != StateTimedOut {
		t.Errorf("outcome = %s, want TIMEOUT", runs[0].Outcome)
	}
	if got := launcher.teardownCount(cells[0].ID); got != 1 {
		t.Errorf("teardown count = %d, want 1", got)
	}
	if r.Ports.InUse() != 0 {
		t.Errorf("ports leaked after timeout: %d", r.Ports.InUse())
	}
}

func TestRunnerSiblingIsolation(t *testing.T) {
	launcher := newFakeLauncher()
	cells := testCells(4)
	launcher.serverErr[cells[1].ID] = fmt.Errorf("image pull failed")
	r := testRunner(t, launcher, &fakeProber{})

	runs := r.Run(context.Background(), cells)

	if runs[1].Outcome != StateFailed {
		t.Errorf("broken cell outcome = %s, want FAILED", runs[1].Outcome)
	}
	if runs[1].ErrorCode != errors.ErrCodeEnvStart {
		t.Errorf("broken cell code = %s, want ENV_START_ERROR", runs[1].ErrorCode)
	}
	for _, i := range []int{0, 2, 3} {
		if runs[i].Outcome != StatePassed {
			t.Errorf("sibling %d outcome = %s, want PASSED", i, runs[i].Outcome)
		}
	}
}

func TestRunnerCellDeadlineForcesTimeout(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.delay = time.Second
	r := testRunner(t, launcher, &fakeProber{})
	r.CellTimeout = 50 * time.Millisecond
	cells := testCells(1)

	runs := r.Run(context.Background(), cells)

	if runs[0].Outcome != StateTimedOut {
		t.Errorf("outcome = %s, want TIMEOUT", runs[0].Outcome)
	}
	if runs[0].State != StateDone {
		t.Errorf("state = %s, want DONE after forced teardown", runs[0].State)
	}
}

func TestRunnerCancellationStopsAdmission(t *testing.T) {
	launcher := newFakeLauncher()
	r := testRunner(t, launcher, &fakeProber{})
	r.Workers = 8
	cells := testCells(8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// repeat so a worker blocked on the jobs channel cannot win a
	// one-off race against the feeder's shutdown
	for range 200 {
		runs := r.Run(ctx, cells)
		for _, run := range runs {
			if run.State != StatePending {
				t.Fatalf("cell %s reached %s despite pre-cancelled run", run.CellID, run.State)
			}
		}
	}
	if r.Ports.InUse() != 0 {
		t.Errorf("ports held after cancelled run: %d", r.Ports.InUse())
	}
}

func TestRunnerRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	launcher := newFakeLauncher()
	r := testRunner(t, launcher, &fakeProber{})
	r.Metrics = NewMetrics(reg)

	r.Run(context.Background(), testCells(3))

	if got := testutil.ToFloat64(r.Metrics.CellOutcomes.WithLabelValues(string(StatePassed))); got != 3 {
		t.Errorf("PASSED outcomes = %v, want 3", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"sdkbench_cells_running",
		"sdkbench_cell_outcomes_total",
		"sdkbench_stage_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric family %s not gathered", want)
		}
	}
}

func TestRunnerPortExhaustionFailsCell(t *testing.T) {
	launcher := newFakeLauncher()
	ports, err := envspec.NewPortAllocator(19000, 19002)
	if err != nil {
		t.Fatalf("NewPortAllocator: %v", err)
	}
	r := testRunner(t, launcher, &fakeProber{})
	r.Ports = ports
	r.Workers = 1

	// pin both ports so the single cell cannot allocate
	if _, err := ports.Allocate("squatter"); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	runs := r.Run(context.Background(), testCells(1))

	if runs[0].Outcome != StateFailed {
		t.Errorf("outcome = %s, want FAILED", runs[0].Outcome)
	}
	if runs[0].ErrorCode != errors.ErrCodePortExhausted {
		t.Errorf("code = %s, want PORT_EXHAUSTED", runs[0].ErrorCode)
	}
	if runs[0].State != StateDone {
		t.Errorf("state = %s, want DONE", runs[0].State)
	}
	if got := launcher.teardownCount(runs[0].CellID); got != 0 {
		t.Errorf("no environment existed, but teardown ran %d times", got)
	}
}
