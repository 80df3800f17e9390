package report

import (
	"sort"
	"time"

	"github.com/crosslang/sdkbench/pkg/catalog"
	"github.com/crosslang/sdkbench/pkg/errors"
	"github.com/crosslang/sdkbench/pkg/matrix"
	"github.com/crosslang/sdkbench/pkg/runner"
)

// Aggregate merges cells and their runs into a report. Entries are
// sorted by cell ID regardless of the order runs completed in; cells
// is matched to runs by position, as produced by the runner.
func Aggregate(runID string, cells []matrix.Cell, runs []*runner.Run, warnings []catalog.Warning) *Report {
	entries := make([]Entry, 0, len(cells))
	for i, cell := range cells {
		var run *runner.Run
		if i < len(runs) {
			run = runs[i]
		}
		entries = append(entries, Entry{
			Cell:   cell,
			Run:    run,
			Status: classify(run),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Cell.ID < entries[j].Cell.ID })

	r := &Report{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Entries:   entries,
		Warnings:  warnings,
	}
	r.Summary = summarize(entries)
	r.PassRates = passRates(entries)
	return r
}

// classify maps a run to its edge status. A protocol-level failure means
// the two SDKs are incompatible; everything else that went wrong is an
// infrastructure error, not a verdict about the pairing.
func classify(run *runner.Run) EdgeStatus {
	if run == nil || run.Outcome == "" {
		return StatusUntested
	}
	switch run.Outcome {
	case runner.StatePassed:
		return StatusCompatible
	case runner.StateFailed:
		if run.ErrorCode == errors.ErrCodeProtocol {
			return StatusIncompatible
		}
		return StatusError
	default:
		return StatusError
	}
}

func summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch {
		case e.Run == nil || e.Run.Outcome == "":
			s.Untested++
		case e.Run.Outcome == runner.StatePassed:
			s.Passed++
		case e.Run.Outcome == runner.StateTimedOut:
			s.TimedOut++
		case e.Status == StatusIncompatible:
			s.Failed++
		default:
			s.Errored++
		}
	}
	return s
}

func passRates(entries []Entry) map[string]PassRate {
	rates := make(map[string]PassRate)
	bump := func(language string, passed bool) {
		r := rates[language]
		r.Total++
		if passed {
			r.Passed++
		}
		rates[language] = r
	}
	for _, e := range entries {
		passed := e.Status == StatusCompatible
		bump(e.Cell.ClientLang, passed)
		if e.Cell.ServerLang != e.Cell.ClientLang {
			bump(e.Cell.ServerLang, passed)
		}
	}
	for language, r := range rates {
		if r.Total > 0 {
			r.Rate = float64(r.Passed) / float64(r.Total)
		}
		rates[language] = r
	}
	return rates
}
