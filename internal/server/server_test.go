package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/crosslang/sdkbench/pkg/matrix"
	"github.com/crosslang/sdkbench/pkg/report"
	"github.com/crosslang/sdkbench/pkg/runner"
)

func testServer(t *testing.T) (*Server, report.Store) {
	t.Helper()
	store, err := report.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return New(store, nil, log.NewWithOptions(io.Discard, log.Options{})), store
}

func seedReport(t *testing.T, store report.Store) *report.Report {
	t.Helper()
	cell := matrix.NewCell("python", "1.0.0", "rust", "0.1.0")
	run := runner.NewRun(cell.ID)
	for _, s := range []runner.State{
		runner.StateStartingServer, runner.StateWaitingReady, runner.StateRunningClient,
		runner.StatePassed, runner.StateTeardown, runner.StateDone,
	} {
		if err := run.To(s); err != nil {
			t.Fatalf("To(%s): %v", s, err)
		}
	}
	rep := report.Aggregate("run-1", []matrix.Cell{cell}, []*runner.Run{run}, nil)
	if err := store.SaveReport(context.Background(), rep); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	return rep
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReportNotFound(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body["code"] != "NOT_FOUND" {
		t.Errorf("error code = %q, want NOT_FOUND", body["code"])
	}
}

func TestReportRoundtrip(t *testing.T) {
	srv, store := testServer(t)
	saved := seedReport(t, store)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got report.Report
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if got.RunID != saved.RunID || got.Summary.Passed != 1 {
		t.Errorf("report = %s with %+v", got.RunID, got.Summary)
	}
}

func TestEdgesEmptyIsArray(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/edges", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty edges body = %q, want []", body)
	}
}

func TestMatrixDOT(t *testing.T) {
	srv, store := testServer(t)
	seedReport(t, store)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matrix.dot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "digraph compatibility") {
		t.Errorf("unexpected DOT body: %q", rec.Body.String()[:60])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("content type = %q", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
