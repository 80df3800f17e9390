// Package report aggregates per-cell runs into a deterministic report
// and maintains the long-lived compatibility edge set.
//
// Report content is independent of completion order: entries are always
// sorted by cell ID before persistence, so two runs over the same matrix
// produce directly comparable documents.
package report

import (
	"time"

	"github.com/crosslang/sdkbench/pkg/catalog"
	"github.com/crosslang/sdkbench/pkg/matrix"
	"github.com/crosslang/sdkbench/pkg/runner"
)

// EdgeStatus is the compatibility verdict for one client/server pairing.
type EdgeStatus string

const (
	// StatusCompatible means the client ran the exchange successfully.
	StatusCompatible EdgeStatus = "compatible"
	// StatusIncompatible means the exchange itself failed: the failure
	// came from the client/server protocol interaction, not from
	// infrastructure.
	StatusIncompatible EdgeStatus = "incompatible"
	// StatusError covers environment startup failures, timeouts, and
	// other infrastructure-level problems.
	StatusError EdgeStatus = "error"
	// StatusUntested marks pairings that were scheduled but never ran.
	StatusUntested EdgeStatus = "untested"
)

// Edge is the persisted compatibility verdict for a 4-tuple, updated on
// every run that exercises it.
type Edge struct {
	ClientLang    string     `json:"client_lang" bson:"client_lang"`
	ClientVersion string     `json:"client_version" bson:"client_version"`
	ServerLang    string     `json:"server_lang" bson:"server_lang"`
	ServerVersion string     `json:"server_version" bson:"server_version"`
	Status        EdgeStatus `json:"status" bson:"status"`
	CellID        string     `json:"cell_id" bson:"cell_id"`
	RunID         string     `json:"run_id" bson:"run_id"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// Entry pairs a cell with its run record and derived status.
type Entry struct {
	Cell   matrix.Cell `json:"cell"`
	Run    *runner.Run `json:"run"`
	Status EdgeStatus  `json:"status"`
}

// Summary holds the outcome counts for one run.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	TimedOut int `json:"timed_out"`
	Errored  int `json:"errored"`
	Untested int `json:"untested"`
}

// PassRate is a per-language success ratio. A cell counts toward a
// language on both its client and server side.
type PassRate struct {
	Total  int     `json:"total"`
	Passed int     `json:"passed"`
	Rate   float64 `json:"rate"`
}

// Report is the persisted output of one matrix run.
type Report struct {
	RunID     string              `json:"run_id" bson:"run_id"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
	Entries   []Entry             `json:"entries"`
	Summary   Summary             `json:"summary"`
	PassRates map[string]PassRate `json:"pass_rates"`
	Warnings  []catalog.Warning   `json:"warnings,omitempty"`
}

// AllPassed reports whether every scheduled cell passed. Untested
// entries count as not passed: a cancelled run is not a green run.
func (r *Report) AllPassed() bool {
	return r.Summary.Total > 0 && r.Summary.Passed == r.Summary.Total
}

// Edges derives the compatibility edge set from the report's entries.
func (r *Report) Edges() []Edge {
	edges := make([]Edge, len(r.Entries))
	for i, e := range r.Entries {
		edges[i] = Edge{
			ClientLang:    e.Cell.ClientLang,
			ClientVersion: e.Cell.ClientVersion,
			ServerLang:    e.Cell.ServerLang,
			ServerVersion: e.Cell.ServerVersion,
			Status:        e.Status,
			CellID:        e.Cell.ID,
			RunID:         r.RunID,
			UpdatedAt:     r.CreatedAt,
		}
	}
	return edges
}
