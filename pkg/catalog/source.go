package catalog

import (
	"context"
	"time"

	"github.com/crosslang/sdkbench/pkg/cache"
	"github.com/crosslang/sdkbench/pkg/integrations/github"
	"github.com/crosslang/sdkbench/pkg/lang"
)

// Upstream is a raw release as reported by the release source, before
// version normalization.
type Upstream struct {
	Tag         string
	PublishedAt time.Time
	Prerelease  bool
	URL         string
}

// Source lists releases for a language from an external feed.
type Source interface {
	// List fetches the current releases. Implementations retry
	// transient failures internally; a returned error means retries
	// were exhausted.
	List(ctx context.Context, adapter *lang.Adapter, refresh bool) ([]Upstream, error)

	// ListStale returns the last successfully cached release listing,
	// even if expired. ok is false when nothing was ever cached.
	ListStale(ctx context.Context, adapter *lang.Adapter) ([]Upstream, bool)
}

// GitHubSource lists releases from the GitHub releases API.
type GitHubSource struct {
	client *github.Client
}

// NewGitHubSource creates a Source backed by the GitHub API. token may be
// empty for unauthenticated access; c caches release listings for ttl.
func NewGitHubSource(token string, c cache.Cache, ttl time.Duration) *GitHubSource {
	return &GitHubSource{client: github.NewClient(token, c, ttl)}
}

// NewGitHubSourceAt is NewGitHubSource pointed at a custom API root,
// used by tests.
func NewGitHubSourceAt(url, token string, c cache.Cache, ttl time.Duration) *GitHubSource {
	return &GitHubSource{client: github.NewClient(token, c, ttl).WithBaseURL(url)}
}

// List implements Source.
func (s *GitHubSource) List(ctx context.Context, adapter *lang.Adapter, refresh bool) ([]Upstream, error) {
	owner, repo := adapter.RepoOwnerName()
	releases, err := s.client.Releases(ctx, owner, repo, refresh)
	if err != nil {
		return nil, err
	}
	return toUpstream(releases), nil
}

// ListStale implements Source.
func (s *GitHubSource) ListStale(ctx context.Context, adapter *lang.Adapter) ([]Upstream, bool) {
	owner, repo := adapter.RepoOwnerName()
	releases, ok := s.client.StaleReleases(ctx, owner, repo)
	if !ok {
		return nil, false
	}
	return toUpstream(releases), true
}

func toUpstream(releases []github.Release) []Upstream {
	out := make([]Upstream, len(releases))
	for i, r := range releases {
		out[i] = Upstream{
			Tag:         r.Tag,
			PublishedAt: r.PublishedAt,
			Prerelease:  r.Prerelease,
			URL:         r.URL,
		}
	}
	return out
}
