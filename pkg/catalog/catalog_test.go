package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crosslang/sdkbench/pkg/errors"
	"github.com/crosslang/sdkbench/pkg/lang"
)

// fakeSource serves canned releases per language and can be told to fail.
type fakeSource struct {
	releases map[string][]Upstream
	stale    map[string][]Upstream
	fail     map[string]bool
}

func (s *fakeSource) List(ctx context.Context, adapter *lang.Adapter, refresh bool) ([]Upstream, error) {
	if s.fail[adapter.Name] {
		return nil, fmt.Errorf("feed down for %s", adapter.Name)
	}
	return s.releases[adapter.Name], nil
}

func (s *fakeSource) ListStale(ctx context.Context, adapter *lang.Adapter) ([]Upstream, bool) {
	rs, ok := s.stale[adapter.Name]
	return rs, ok
}

func upstream(tags ...string) []Upstream {
	out := make([]Upstream, len(tags))
	for i, tag := range tags {
		out[i] = Upstream{Tag: tag, PublishedAt: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)}
	}
	return out
}

func TestRefreshMarksSingleLatest(t *testing.T) {
	src := &fakeSource{releases: map[string][]Upstream{
		"python": upstream("v1.2.0", "v1.10.0", "v2.0.0rc1", "v1.2.0"),
	}}
	c := New(src, lang.Default())

	if err := c.Refresh(context.Background(), "python", false); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := c.Snapshot()
	releases := snap.Releases["python"]

	// duplicate 1.2.0 collapses
	if len(releases) != 3 {
		t.Fatalf("got %d releases, want 3", len(releases))
	}
	// sorted newest-first
	wantOrder := []string{"2.0.0-rc1", "1.10.0", "1.2.0"}
	for i, want := range wantOrder {
		if releases[i].Version != want {
			t.Errorf("releases[%d] = %s, want %s", i, releases[i].Version, want)
		}
	}
	// latest is the highest non-prerelease, not the rc
	latest, ok := snap.Latest("python")
	if !ok {
		t.Fatal("no latest release")
	}
	if latest.Version != "1.10.0" {
		t.Errorf("latest = %s, want 1.10.0", latest.Version)
	}
	count := 0
	for _, r := range releases {
		if r.IsLatest {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d latest flags, want 1", count)
	}
}

func TestRefreshAllPrereleaseLatest(t *testing.T) {
	src := &fakeSource{releases: map[string][]Upstream{
		"rust": upstream("v0.1.0-rc1", "v0.1.0-rc2"),
	}}
	c := New(src, lang.Default())

	if err := c.Refresh(context.Background(), "rust", false); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	latest, ok := c.Snapshot().Latest("rust")
	if !ok {
		t.Fatal("no latest release")
	}
	if latest.Version != "0.1.0-rc2" {
		t.Errorf("latest = %s, want 0.1.0-rc2", latest.Version)
	}
}

func TestRefreshInvalidTagWarns(t *testing.T) {
	src := &fakeSource{releases: map[string][]Upstream{
		"python": upstream("v1.0.0", "nightly-build"),
	}}
	c := New(src, lang.Default())

	if err := c.Refresh(context.Background(), "python", false); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Releases["python"]) != 1 {
		t.Errorf("got %d releases, want 1", len(snap.Releases["python"]))
	}
	if len(snap.Warnings) != 1 || snap.Warnings[0].Code != WarnInvalidVersion {
		t.Errorf("warnings = %+v, want one INVALID_VERSION", snap.Warnings)
	}
}

func TestRefreshStaleFallback(t *testing.T) {
	src := &fakeSource{
		fail:  map[string]bool{"python": true},
		stale: map[string][]Upstream{"python": upstream("v1.0.0")},
	}
	c := New(src, lang.Default())

	if err := c.Refresh(context.Background(), "python", false); err != nil {
		t.Fatalf("Refresh should fall back to stale data: %v", err)
	}
	snap := c.Snapshot()
	if _, ok := snap.Find("python", "1.0.0"); !ok {
		t.Error("stale release missing from snapshot")
	}
	if len(snap.Warnings) != 1 || snap.Warnings[0].Code != WarnDegradedData {
		t.Errorf("warnings = %+v, want one DEGRADED_DATA", snap.Warnings)
	}
}

func TestRefreshUnavailable(t *testing.T) {
	src := &fakeSource{fail: map[string]bool{"python": true}}
	c := New(src, lang.Default())

	err := c.Refresh(context.Background(), "python", false)
	if err == nil {
		t.Fatal("Refresh should fail with no cache to fall back on")
	}
	if !errors.Is(err, errors.ErrCodeCatalogUnavailable) {
		t.Errorf("code = %v, want CATALOG_UNAVAILABLE", errors.GetCode(err))
	}
}

func TestRefreshUnknownLanguage(t *testing.T) {
	c := New(&fakeSource{}, lang.Default())
	err := c.Refresh(context.Background(), "cobol", false)
	if !errors.Is(err, errors.ErrCodeInvalidLanguage) {
		t.Errorf("code = %v, want INVALID_LANGUAGE", errors.GetCode(err))
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	src := &fakeSource{
		releases: map[string][]Upstream{
			"python":     upstream("v1.0.0"),
			"typescript": upstream("v0.5.0"),
		},
		fail: map[string]bool{"rust": true},
	}
	c := New(src, lang.Default())

	failures := c.RefreshAll(context.Background(), nil, false)
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want rust only", failures)
	}
	if _, ok := failures["rust"]; !ok {
		t.Fatalf("failures = %v, want rust", failures)
	}
	snap := c.Snapshot()
	if _, ok := snap.Latest("python"); !ok {
		t.Error("python missing despite rust failure")
	}
	if _, ok := snap.Latest("typescript"); !ok {
		t.Error("typescript missing despite rust failure")
	}
	if _, ok := snap.Latest("rust"); ok {
		t.Error("rust should be excluded from the snapshot")
	}
	found := false
	for _, w := range snap.Warnings {
		if w.Language == "rust" && w.Code == WarnUnavailable {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %+v, want UNAVAILABLE for rust", snap.Warnings)
	}
}
