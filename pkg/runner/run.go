// Package runner executes matrix cells through their per-cell state
// machine on a bounded worker pool.
//
// Each cell moves Pending → StartingServer → WaitingReady →
// RunningClient → {Passed|Failed|TimedOut} → Teardown → Done. Transitions
// are monotone: a run never moves backward and its outcome is fixed the
// moment it enters a terminal outcome state. Teardown runs exactly once
// per cell on every path, including forced timeouts and operator
// cancellation, and always releases the cell's ports.
package runner

import (
	"time"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// State is a position in the per-cell lifecycle.
type State string

const (
	StatePending        State = "PENDING"
	StateStartingServer State = "STARTING_SERVER"
	StateWaitingReady   State = "WAITING_READY"
	StateRunningClient  State = "RUNNING_CLIENT"
	StatePassed         State = "PASSED"
	StateFailed         State = "FAILED"
	StateTimedOut       State = "TIMEOUT"
	StateTeardown       State = "TEARDOWN"
	StateDone           State = "DONE"
)

// transitions lists the legal successor states.
var transitions = map[State][]State{
	StatePending:        {StateStartingServer},
	StateStartingServer: {StateWaitingReady, StatePassed, StateFailed, StateTimedOut},
	StateWaitingReady:   {StateRunningClient, StateFailed, StateTimedOut},
	StateRunningClient:  {StatePassed, StateFailed, StateTimedOut},
	StatePassed:         {StateTeardown},
	StateFailed:         {StateTeardown},
	StateTimedOut:       {StateTeardown},
	StateTeardown:       {StateDone},
	StateDone:           {},
}

// Outcome reports whether s is one of the three terminal outcomes.
func (s State) Outcome() bool {
	return s == StatePassed || s == StateFailed || s == StateTimedOut
}

// Run is the execution record of one cell. It is owned by a single
// worker goroutine while in flight; stage transitions of one cell are
// strictly sequential.
type Run struct {
	CellID        string                  `json:"cell_id"`
	State         State                   `json:"state"`
	Outcome       State                   `json:"outcome,omitempty"`
	ErrorCode     errors.Code             `json:"error_code,omitempty"`
	Error         string                  `json:"error,omitempty"`
	TeardownError string                  `json:"teardown_error,omitempty"`
	LogRef        string                  `json:"log_ref,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at,omitempty"`
	Durations     map[State]time.Duration `json:"durations,omitempty"`

	enteredAt time.Time
}

// NewRun creates a pending run for a cell.
func NewRun(cellID string) *Run {
	now := time.Now().UTC()
	return &Run{
		CellID:    cellID,
		State:     StatePending,
		StartedAt: now,
		Durations: make(map[State]time.Duration),
		enteredAt: now,
	}
}

// To advances the run to the next state, recording how long the previous
// stage took. Illegal transitions are an internal error: they indicate a
// bug in the orchestrator, not a cell failure.
func (r *Run) To(next State) error {
	legal := false
	for _, s := range transitions[r.State] {
		if s == next {
			legal = true
			break
		}
	}
	if !legal {
		return errors.New(errors.ErrCodeInternal,
			"illegal transition %s -> %s for cell %s", r.State, next, r.CellID)
	}

	now := time.Now().UTC()
	r.Durations[r.State] = now.Sub(r.enteredAt)
	r.enteredAt = now
	r.State = next
	if next.Outcome() {
		r.Outcome = next
	}
	if next == StateDone {
		r.FinishedAt = now
	}
	return nil
}

// fail records the error and moves the run to the given outcome state.
func (r *Run) fail(outcome State, code errors.Code, err error) {
	r.ErrorCode = code
	if err != nil {
		r.Error = err.Error()
	}
	// ignore: callers only fail from states where the outcome is legal
	_ = r.To(outcome)
}
