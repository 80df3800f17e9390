package catalog

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// NormalizeVersion converts a release tag to a canonical semantic version
// string. It strips a leading "v" and rewrites bare release-candidate
// suffixes ("1.2.0rc1") into valid prerelease form ("1.2.0-rc1"), which
// some SDK repositories use in their tags.
func NormalizeVersion(tag string) (string, error) {
	s := strings.TrimSpace(strings.TrimPrefix(tag, "v"))
	if i := strings.Index(s, "rc"); bareRC(s, i) {
		s = s[:i] + "-rc" + s[i+2:]
	}

	v, err := semver.NewVersion(s)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidVersion, err, "version tag %q", tag)
	}
	return v.String(), nil
}

// bareRC reports whether s[i:] starts a PEP 440 style release candidate
// glued to the version digits ("1.2.0rc1"). A digit must precede "rc"
// and a digit or end-of-string must follow, so prerelease words that
// merely contain "rc" ("1.0.0-search") are left alone.
func bareRC(s string, i int) bool {
	if i <= 0 || s[i-1] < '0' || s[i-1] > '9' {
		return false
	}
	return i+2 == len(s) || (s[i+2] >= '0' && s[i+2] <= '9')
}

// CompareVersions orders two normalized version strings.
// Returns <0 if a is older than b, 0 if equal, >0 if newer.
// Both arguments must have passed NormalizeVersion.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		// Unparsable versions cannot reach here through the catalog;
		// fall back to string order to stay total.
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// IsPrerelease reports whether a normalized version carries a prerelease
// component.
func IsPrerelease(version string) bool {
	v, err := semver.NewVersion(version)
	return err == nil && v.Prerelease() != ""
}
