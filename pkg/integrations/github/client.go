// Package github lists SDK releases from the GitHub releases API.
package github

import (
	"context"
	"fmt"
	"time"

	"github.com/crosslang/sdkbench/pkg/cache"
	"github.com/crosslang/sdkbench/pkg/integrations"
)

const pageSize = 100

// Client provides access to the GitHub API for release listings.
// It handles HTTP requests with caching, automatic retries, and optional
// authentication.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub API client with optional authentication.
// Pass an empty string for token to use unauthenticated requests (lower
// rate limits). Releases are cached in c for cacheTTL.
func NewClient(token string, c cache.Cache, cacheTTL time.Duration) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	return &Client{
		Client:  integrations.NewClient(c, cacheTTL, headers),
		baseURL: "https://api.github.com",
	}
}

// WithBaseURL returns a copy of the client pointed at a different API
// root. Used in tests against httptest servers.
func (c *Client) WithBaseURL(url string) *Client {
	return &Client{Client: c.Client, baseURL: url}
}

// Releases lists all published releases of owner/repo, newest first as
// GitHub returns them. Draft releases are excluded. If refresh is true,
// cached data is bypassed.
func (c *Client) Releases(ctx context.Context, owner, repo string, refresh bool) ([]Release, error) {
	key := "github:releases:" + owner + "/" + repo

	var releases []Release
	err := c.Cached(ctx, key, refresh, &releases, func() error {
		var err error
		releases, err = c.fetchReleases(ctx, owner, repo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}

// StaleReleases returns the last cached release list regardless of TTL.
func (c *Client) StaleReleases(ctx context.Context, owner, repo string) ([]Release, bool) {
	key := "github:releases:" + owner + "/" + repo

	var releases []Release
	ok, _ := c.Stale(ctx, key, &releases)
	return releases, ok
}

func (c *Client) fetchReleases(ctx context.Context, owner, repo string) ([]Release, error) {
	var all []Release
	for page := 1; ; page++ {
		var data []releaseResponse
		url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d", c.baseURL, owner, repo, pageSize, page)
		if err := c.Get(ctx, url, &data); err != nil {
			return nil, err
		}

		for _, r := range data {
			if r.Draft {
				continue
			}
			all = append(all, Release{
				Tag:         r.TagName,
				PublishedAt: r.PublishedAt,
				Prerelease:  r.Prerelease,
				URL:         r.HTMLURL,
			})
		}
		if len(data) < pageSize {
			return all, nil
		}
	}
}
