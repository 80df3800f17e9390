// Package lang defines the static per-language adapter registry.
//
// Every supported SDK language contributes one [Adapter] value describing
// where its releases are published and how to run its client and server
// sides inside a generated environment. Adapters are selected by language
// tag through [Registry]; there is no dynamic dispatch and no per-run
// mutation of adapter state.
package lang

import (
	"fmt"
	"sort"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// Adapter is the fixed capability set of one SDK language.
type Adapter struct {
	// Name is the language tag used in rules files and reports.
	Name string

	// Repo is the GitHub repository ("owner/name") whose releases are
	// the language's version feed.
	Repo string

	// Image is the container base image for both roles.
	Image string

	// DefaultPort is the port the SDK's example server binds when no
	// explicit port is injected. The generator overrides it via
	// environment variables but keeps it as the in-container listen
	// port default.
	DefaultPort int

	// ReadyPath is the HTTP path of the server's readiness probe.
	ReadyPath string

	// ServerCommand and ClientCommand start the respective role inside
	// the environment.
	ServerCommand string
	ClientCommand string

	// PackageSpec returns the package-manager pin for a concrete SDK
	// version (e.g., a requirements.txt line or a Cargo dependency).
	PackageSpec func(version string) string
}

// Registry holds all supported language adapters, keyed by tag.
type Registry struct {
	adapters map[string]*Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...*Adapter) *Registry {
	m := make(map[string]*Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name] = a
	}
	return &Registry{adapters: m}
}

// Default returns the registry of all built-in language adapters.
func Default() *Registry {
	return NewRegistry(Python, TypeScript, Rust)
}

// Get resolves a language tag to its adapter.
func (r *Registry) Get(name string) (*Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidLanguage,
			"unknown language %q (available: %v)", name, r.Names())
	}
	return a, nil
}

// Names returns all registered language tags, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a language tag is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.adapters[name]
	return ok
}

// RepoOwnerName splits the adapter's Repo into owner and name.
func (a *Adapter) RepoOwnerName() (owner, name string) {
	for i, c := range a.Repo {
		if c == '/' {
			return a.Repo[:i], a.Repo[i+1:]
		}
	}
	return a.Repo, ""
}

// String implements fmt.Stringer.
func (a *Adapter) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.Repo)
}
