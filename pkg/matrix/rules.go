package matrix

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/crosslang/sdkbench/pkg/errors"
	"github.com/crosslang/sdkbench/pkg/lang"
)

// VersionLatest is the marker resolving to a language's latest release.
const VersionLatest = "latest"

// Pair is one declarative compatibility rule: the cross product of the
// listed client and server versions for a language pair. Version entries
// are concrete normalized versions or the "latest" marker. Empty version
// lists default to ["latest"].
type Pair struct {
	Client         string   `toml:"client"`
	Server         string   `toml:"server"`
	ClientVersions []string `toml:"client_versions"`
	ServerVersions []string `toml:"server_versions"`
}

// Rules is the parsed compatibility rules file.
type Rules struct {
	Pairs []Pair `toml:"pair"`
}

// LoadRules reads and validates a TOML rules file. A missing path is not
// an error: it yields empty rules, which means latest-against-latest for
// every language pair.
func LoadRules(path string, registry *lang.Registry) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "reading rules file %s", path)
	}
	return ParseRules(data, registry)
}

// ParseRules parses TOML rules and validates every referenced language
// against the registry. Malformed input fails before any scheduling.
func ParseRules(data []byte, registry *lang.Registry) (*Rules, error) {
	var rules Rules
	if err := toml.Unmarshal(data, &rules); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRules, err, "parsing rules file")
	}
	for i, p := range rules.Pairs {
		if p.Client == "" || p.Server == "" {
			return nil, errors.New(errors.ErrCodeInvalidRules,
				"pair %d: client and server languages are required", i+1)
		}
		if !registry.Has(p.Client) {
			return nil, errors.New(errors.ErrCodeInvalidRules,
				"pair %d: unknown client language %q (available: %v)", i+1, p.Client, registry.Names())
		}
		if !registry.Has(p.Server) {
			return nil, errors.New(errors.ErrCodeInvalidRules,
				"pair %d: unknown server language %q (available: %v)", i+1, p.Server, registry.Names())
		}
		for _, v := range append(append([]string(nil), p.ClientVersions...), p.ServerVersions...) {
			if v == "" {
				return nil, errors.New(errors.ErrCodeInvalidRules,
					"pair %d (%s->%s): empty version entry", i+1, p.Client, p.Server)
			}
		}
	}
	return &rules, nil
}

// clientVersions returns the pair's client version list, defaulting to
// the latest marker.
func (p Pair) clientVersions() []string {
	if len(p.ClientVersions) == 0 {
		return []string{VersionLatest}
	}
	return p.ClientVersions
}

func (p Pair) serverVersions() []string {
	if len(p.ServerVersions) == 0 {
		return []string{VersionLatest}
	}
	return p.ServerVersions
}
