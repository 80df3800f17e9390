package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crosslang/sdkbench/pkg/errors"
	"github.com/crosslang/sdkbench/pkg/lang"
)

// Catalog fetches and holds release metadata per language.
//
// Refreshes of the same language are serialized by a per-language lock;
// refreshes of distinct languages may run concurrently. Reads take a
// consistent copy via [Catalog.Snapshot].
type Catalog struct {
	source   Source
	registry *lang.Registry

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	releases map[string][]Release
	warnings []Warning
}

// New creates a catalog over the given source and language registry.
func New(source Source, registry *lang.Registry) *Catalog {
	return &Catalog{
		source:   source,
		registry: registry,
		locks:    make(map[string]*sync.Mutex),
		releases: make(map[string][]Release),
	}
}

// Refresh fetches the release list for one language. On retry exhaustion
// it falls back to the source's last cached listing and records a
// degraded-data warning. It fails only when the fetch failed and no
// cached listing exists, returning a CATALOG_UNAVAILABLE error scoped to
// this language.
func (c *Catalog) Refresh(ctx context.Context, language string, refresh bool) error {
	adapter, err := c.registry.Get(language)
	if err != nil {
		return err
	}

	lock := c.langLock(language)
	lock.Lock()
	defer lock.Unlock()

	upstream, fetchErr := c.source.List(ctx, adapter, refresh)
	if fetchErr != nil {
		stale, ok := c.source.ListStale(ctx, adapter)
		if !ok {
			return errors.Wrap(errors.ErrCodeCatalogUnavailable, fetchErr,
				"no release data for %s: fetch failed and no cached snapshot exists", language)
		}
		upstream = stale
		c.addWarning(Warning{
			Language: language,
			Code:     WarnDegradedData,
			Message:  "release fetch failed after retries; using last cached snapshot: " + fetchErr.Error(),
		})
	}

	releases, warnings := normalize(language, upstream)
	c.mu.Lock()
	c.releases[language] = releases
	c.warnings = append(c.warnings, warnings...)
	c.mu.Unlock()
	return nil
}

// RefreshAll refreshes every given language (all registered languages if
// none are named). Failures are collected per language; one language's
// CatalogUnavailable never aborts the others.
func (c *Catalog) RefreshAll(ctx context.Context, languages []string, refresh bool) map[string]error {
	if len(languages) == 0 {
		languages = c.registry.Names()
	}

	failures := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, language := range languages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Refresh(ctx, language, refresh); err != nil {
				mu.Lock()
				failures[language] = err
				mu.Unlock()
				c.addWarning(Warning{
					Language: language,
					Code:     WarnUnavailable,
					Message:  errors.UserMessage(err),
				})
			}
		}()
	}
	wg.Wait()
	return failures
}

// Snapshot returns a consistent copy of the catalog state.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	releases := make(map[string][]Release, len(c.releases))
	for l, rs := range c.releases {
		releases[l] = append([]Release(nil), rs...)
	}
	return &Snapshot{
		Releases: releases,
		Warnings: append([]Warning(nil), c.warnings...),
		TakenAt:  time.Now().UTC(),
	}
}

func (c *Catalog) langLock(language string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[language]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[language] = lock
	}
	return lock
}

func (c *Catalog) addWarning(w Warning) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

// normalize converts upstream releases into catalog releases: versions
// are normalized (unparsable tags are dropped with a warning),
// duplicates collapse to the first occurrence, the list is sorted
// newest-first, and exactly one release is marked latest - the highest
// non-prerelease version, or the highest version overall when every
// release is a prerelease.
func normalize(language string, upstream []Upstream) ([]Release, []Warning) {
	var warnings []Warning
	seen := make(map[string]bool, len(upstream))
	releases := make([]Release, 0, len(upstream))

	for _, u := range upstream {
		version, err := NormalizeVersion(u.Tag)
		if err != nil {
			warnings = append(warnings, Warning{
				Language: language,
				Code:     WarnInvalidVersion,
				Message:  errors.UserMessage(err),
			})
			continue
		}
		if seen[version] {
			continue
		}
		seen[version] = true
		releases = append(releases, Release{
			Language:    language,
			Version:     version,
			ReleaseDate: u.PublishedAt,
			Prerelease:  u.Prerelease || IsPrerelease(version),
			URL:         u.URL,
		})
	}

	sort.Slice(releases, func(i, j int) bool {
		return CompareVersions(releases[i].Version, releases[j].Version) > 0
	})

	for i := range releases {
		if !releases[i].Prerelease {
			releases[i].IsLatest = true
			break
		}
	}
	if len(releases) > 0 && !hasLatest(releases) {
		releases[0].IsLatest = true
	}

	return releases, warnings
}

func hasLatest(releases []Release) bool {
	for _, r := range releases {
		if r.IsLatest {
			return true
		}
	}
	return false
}
