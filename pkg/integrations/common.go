// Package integrations provides HTTP clients for external release sources.
//
// The shared [Client] handles response caching, retry with backoff and
// jitter, rate-limit detection, and common request headers. Source-specific
// clients (currently GitHub) wrap it with endpoint knowledge.
package integrations

import (
	"errors"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a repository or resource doesn't exist at the source.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrRateLimited is returned when the source throttles the client after
	// all retries have been exhausted.
	ErrRateLimited = errors.New("rate limited")
)

// NewHTTPClient creates an HTTP client with a standard timeout for release-source requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
