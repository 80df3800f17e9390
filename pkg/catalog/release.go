// Package catalog fetches and caches SDK release metadata per language.
//
// The catalog is an explicit value with a defined lifecycle: it is built
// once per run, refreshed per language under that language's own lock,
// and handed to the matrix builder as an immutable [Snapshot]. Refreshes
// of distinct languages are independent; a language whose release feed is
// unreachable degrades to its last cached snapshot (with a recorded
// warning) and, only when no cache exists either, is excluded from the
// snapshot with a CATALOG_UNAVAILABLE error that never affects other
// languages.
package catalog

import (
	"time"
)

// Release is one published SDK release. Unique per (Language, Version).
type Release struct {
	Language    string    `json:"language"`
	Version     string    `json:"version"` // normalized semantic version
	ReleaseDate time.Time `json:"release_date"`
	Prerelease  bool      `json:"prerelease"`
	IsLatest    bool      `json:"is_latest"`
	URL         string    `json:"url,omitempty"`
}

// Warning records a non-fatal catalog condition surfaced in the report.
type Warning struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Warning codes.
const (
	WarnDegradedData   = "DEGRADED_DATA"   // served from a stale cache snapshot
	WarnInvalidVersion = "INVALID_VERSION" // release tag did not parse as semver
	WarnUnavailable    = "UNAVAILABLE"     // language excluded entirely
)

// Snapshot is an immutable view of the catalog for one run.
// Releases are sorted newest-first by semantic version; exactly one
// release per language carries IsLatest.
type Snapshot struct {
	Releases map[string][]Release `json:"releases"`
	Warnings []Warning            `json:"warnings,omitempty"`
	TakenAt  time.Time            `json:"taken_at"`
}

// Latest returns the release flagged latest for a language.
func (s *Snapshot) Latest(language string) (Release, bool) {
	for _, r := range s.Releases[language] {
		if r.IsLatest {
			return r, true
		}
	}
	return Release{}, false
}

// Find returns the release with the given normalized version.
func (s *Snapshot) Find(language, version string) (Release, bool) {
	for _, r := range s.Releases[language] {
		if r.Version == version {
			return r, true
		}
	}
	return Release{}, false
}

// Languages returns the languages present in the snapshot.
func (s *Snapshot) Languages() []string {
	langs := make([]string, 0, len(s.Releases))
	for l := range s.Releases {
		langs = append(langs, l)
	}
	return langs
}
