package runner

import (
	"testing"
)

func TestRunHappyPath(t *testing.T) {
	r := NewRun("abc")
	if r.State != StatePending {
		t.Fatalf("initial state = %s", r.State)
	}
	for _, next := range []State{
		StateStartingServer, StateWaitingReady, StateRunningClient,
		StatePassed, StateTeardown, StateDone,
	} {
		if err := r.To(next); err != nil {
			t.Fatalf("To(%s): %v", next, err)
		}
	}
	if r.Outcome != StatePassed {
		t.Errorf("outcome = %s, want PASSED", r.Outcome)
	}
	if r.FinishedAt.IsZero() {
		t.Error("FinishedAt not set after Done")
	}
	if _, ok := r.Durations[StateRunningClient]; !ok {
		t.Error("missing stage duration for RUNNING_CLIENT")
	}
}

func TestRunRejectsBackwardTransitions(t *testing.T) {
	r := NewRun("abc")
	if err := r.To(StateStartingServer); err != nil {
		t.Fatalf("To: %v", err)
	}
	if err := r.To(StatePending); err == nil {
		t.Error("backward transition should fail")
	}
	if err := r.To(StateDone); err == nil {
		t.Error("skipping to Done should fail")
	}
}

func TestRunOutcomeFixedAfterTerminal(t *testing.T) {
	r := NewRun("abc")
	for _, next := range []State{StateStartingServer, StateWaitingReady, StateRunningClient, StateFailed} {
		if err := r.To(next); err != nil {
			t.Fatalf("To(%s): %v", next, err)
		}
	}
	if err := r.To(StatePassed); err == nil {
		t.Error("outcome change after FAILED should be rejected")
	}
	if err := r.To(StateTeardown); err != nil {
		t.Errorf("FAILED -> TEARDOWN: %v", err)
	}
	if err := r.To(StateTeardown); err == nil {
		t.Error("second teardown transition should fail")
	}
	if r.Outcome != StateFailed {
		t.Errorf("outcome = %s, want FAILED", r.Outcome)
	}
}
