// Package cache provides pluggable byte caching for catalog snapshots.
//
// Backends:
//   - FileCache: on-disk cache for CLI usage (default)
//   - RedisCache: shared cache for multi-instance deployments
//   - NullCache: caching disabled
//
// Keys are namespaced strings (e.g., "catalog:python"). Values are opaque
// bytes; callers handle serialization. Entries carry a TTL, but expired
// entries remain readable through [Cache.GetStale] so the version catalog
// can fall back to the last good snapshot when the release source is
// unreachable.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. Returns hit=false if the key is absent or
	// the entry has expired.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// GetStale retrieves a value even if its TTL has elapsed. The stale
	// return reports whether the entry had expired. Returns hit=false
	// only when the key is absent entirely.
	GetStale(ctx context.Context, key string) (data []byte, hit bool, stale bool, err error)

	// Set stores a value with the given TTL. A TTL of 0 means the entry
	// never goes stale.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// DefaultDir returns the default on-disk cache directory
// (~/.cache/sdkbench), creating nothing.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "sdkbench"), nil
}
