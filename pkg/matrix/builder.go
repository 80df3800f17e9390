package matrix

import (
	"fmt"
	"sort"

	"github.com/crosslang/sdkbench/pkg/catalog"
	"github.com/crosslang/sdkbench/pkg/errors"
)

// Warning codes recorded during matrix construction.
const (
	// WarnConfig flags a recoverable rules or catalog inconsistency.
	WarnConfig = "CONFIG_WARNING"
	// WarnEmptyPair flags a rule whose language pair produced no cells.
	WarnEmptyPair = "EMPTY_PAIR"
)

// Build expands rules against a catalog snapshot into the deduplicated,
// ID-sorted set of test cells.
//
// A "latest" marker resolves to the release flagged latest; a concrete
// version must exist in the snapshot or the whole build fails with a
// CONFIG_ERROR before anything is scheduled. Language pairs with no rule
// default to a single latest-against-latest cell. A rule naming a
// language with no releases in the snapshot yields no cells and a
// warning rather than an error, so one unavailable catalog feed does not
// abort the rest of the matrix.
func Build(snap *catalog.Snapshot, rules *Rules) ([]Cell, []catalog.Warning, error) {
	var warnings []catalog.Warning
	seen := make(map[string]bool)
	var cells []Cell

	add := func(c Cell) {
		if seen[c.ID] {
			return
		}
		seen[c.ID] = true
		cells = append(cells, c)
	}

	covered := make(map[string]bool)
	for _, p := range rules.Pairs {
		covered[p.Client+"->"+p.Server] = true

		clientVersions, err := resolveVersions(snap, p.Client, p.clientVersions(), &warnings)
		if err != nil {
			return nil, nil, err
		}
		serverVersions, err := resolveVersions(snap, p.Server, p.serverVersions(), &warnings)
		if err != nil {
			return nil, nil, err
		}
		for _, cv := range clientVersions {
			for _, sv := range serverVersions {
				add(NewCell(p.Client, cv, p.Server, sv))
			}
		}
		// empty means the rule itself resolved nothing; a rule whose
		// combinations all collapse into earlier rules dedupes silently
		if len(clientVersions) == 0 || len(serverVersions) == 0 {
			warnings = append(warnings, catalog.Warning{
				Code:    WarnEmptyPair,
				Message: fmt.Sprintf("rule %s->%s produced no cells", p.Client, p.Server),
			})
		}
	}

	// Unruled language pairs default to latest-against-latest only;
	// back-version testing is explicit opt-in through the rules file.
	languages := snap.Languages()
	sort.Strings(languages)
	for _, client := range languages {
		clientLatest, ok := latestVersion(snap, client, &warnings)
		if !ok {
			continue
		}
		for _, server := range languages {
			if covered[client+"->"+server] {
				continue
			}
			serverLatest, ok := latestVersion(snap, server, &warnings)
			if !ok {
				continue
			}
			add(NewCell(client, clientLatest, server, serverLatest))
		}
	}

	sort.Slice(cells, func(i, j int) bool { return cells[i].ID < cells[j].ID })
	return cells, warnings, nil
}

// resolveVersions maps a rule's version list to concrete versions present
// in the snapshot. Languages absent from the snapshot resolve to nothing;
// a concrete version the catalog does not know is a fatal input error.
func resolveVersions(snap *catalog.Snapshot, language string, versions []string, warnings *[]catalog.Warning) ([]string, error) {
	releases := snap.Releases[language]
	if len(releases) == 0 {
		return nil, nil
	}

	resolved := make([]string, 0, len(versions))
	for _, v := range versions {
		if v == VersionLatest {
			latest, ok := latestVersion(snap, language, warnings)
			if !ok {
				continue
			}
			resolved = append(resolved, latest)
			continue
		}
		normalized, err := catalog.NormalizeVersion(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err,
				"rules reference invalid %s version %q", language, v)
		}
		if _, ok := snap.Find(language, normalized); !ok {
			return nil, errors.New(errors.ErrCodeConfig,
				"rules reference unknown %s version %q (not in catalog)", language, normalized)
		}
		resolved = append(resolved, normalized)
	}
	return resolved, nil
}

// latestVersion returns the version flagged latest. Should more than one
// release carry the flag, the highest version wins and the inconsistency
// is recorded as a warning.
func latestVersion(snap *catalog.Snapshot, language string, warnings *[]catalog.Warning) (string, bool) {
	var flagged []string
	for _, r := range snap.Releases[language] {
		if r.IsLatest {
			flagged = append(flagged, r.Version)
		}
	}
	switch len(flagged) {
	case 0:
		return "", false
	case 1:
		return flagged[0], true
	}

	best := flagged[0]
	for _, v := range flagged[1:] {
		if catalog.CompareVersions(v, best) > 0 {
			best = v
		}
	}
	*warnings = append(*warnings, catalog.Warning{
		Language: language,
		Code:     WarnConfig,
		Message:  fmt.Sprintf("%d releases flagged latest for %s; using %s", len(flagged), language, best),
	})
	return best, true
}
