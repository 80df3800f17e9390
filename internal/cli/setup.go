package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/crosslang/sdkbench/pkg/cache"
	"github.com/crosslang/sdkbench/pkg/catalog"
	"github.com/crosslang/sdkbench/pkg/lang"
	"github.com/crosslang/sdkbench/pkg/report"
)

const (
	// appName is the application name used for directories and display.
	appName = "sdkbench"

	// Environment variables consumed at the CLI boundary.
	envGitHubToken = "SDKBENCH_GITHUB_TOKEN"
	envRedisAddr   = "SDKBENCH_REDIS_ADDR"
	envMongoURI    = "SDKBENCH_MONGO_URI"

	// defaultCatalogTTL is how long release listings stay fresh.
	defaultCatalogTTL = time.Hour
)

// buildCache selects the release-listing cache backend: Redis when
// SDKBENCH_REDIS_ADDR is set, the per-user file cache otherwise. Cache
// failures degrade to an in-memory null cache instead of aborting, since
// the catalog can always refetch.
func buildCache(ctx context.Context) cache.Cache {
	logger := loggerFromContext(ctx)

	if addr := os.Getenv(envRedisAddr); addr != "" {
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr})
		if err != nil {
			logger.Warn("redis cache unavailable, falling back to file cache", "error", err)
		} else {
			logger.Debug("using redis cache", "addr", addr)
			return c
		}
	}

	dir, err := cache.DefaultDir()
	if err == nil {
		if c, err := cache.NewFileCache(dir); err == nil {
			return c
		}
	}
	logger.Warn("file cache unavailable, caching disabled", "error", err)
	return cache.NewNullCache()
}

// buildCatalog wires the GitHub release source to a fresh catalog over
// the default language registry.
func buildCatalog(ctx context.Context) *catalog.Catalog {
	source := catalog.NewGitHubSource(os.Getenv(envGitHubToken), buildCache(ctx), defaultCatalogTTL)
	return catalog.New(source, lang.Default())
}

// buildStore selects the report store backend: MongoDB when
// SDKBENCH_MONGO_URI is set, JSON files under stateDir otherwise.
func buildStore(ctx context.Context, stateDir string) (report.Store, error) {
	if uri := os.Getenv(envMongoURI); uri != "" {
		loggerFromContext(ctx).Debug("using mongodb store")
		return report.NewMongoStore(ctx, uri, appName)
	}
	return report.NewFileStore(stateDir)
}

// refreshCatalog refreshes the named languages (all when empty) and
// logs per-language failures without aborting the remainder.
func refreshCatalog(ctx context.Context, cat *catalog.Catalog, languages []string, refresh bool) *catalog.Snapshot {
	logger := loggerFromContext(ctx)
	p := newProgress(logger)

	failures := cat.RefreshAll(ctx, languages, refresh)
	for language, err := range failures {
		logger.Warn("catalog refresh failed", "language", language, "error", err)
	}

	snap := cat.Snapshot()
	total := 0
	for _, releases := range snap.Releases {
		total += len(releases)
	}
	p.done(fmt.Sprintf("Fetched %d releases across %d languages", total, len(snap.Releases)))
	return snap
}
