package runner

import (
	"context"
	"net/http"
	"time"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// ReadinessProber reports when a cell's server side is ready to serve.
type ReadinessProber interface {
	// WaitReady blocks until the readiness endpoint answers, the probe
	// bound is exhausted, or the context expires.
	WaitReady(ctx context.Context, url string) error
}

// Prober polls a server's readiness endpoint: bounded attempts at a
// fixed interval, each attempt an HTTP GET expecting a 2xx.
type Prober struct {
	Attempts int
	Interval time.Duration
	Client   *http.Client
}

// NewProber creates a prober with the given bound and interval.
func NewProber(attempts int, interval time.Duration) *Prober {
	return &Prober{
		Attempts: attempts,
		Interval: interval,
		Client:   &http.Client{Timeout: 2 * time.Second},
	}
}

// WaitReady blocks until the URL answers 2xx, the attempt bound is
// exhausted, or the context expires. Exhaustion is a READINESS_TIMEOUT.
func (p *Prober) WaitReady(ctx context.Context, url string) error {
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if ok := p.probe(ctx, url); ok {
			return nil
		}
		if attempt == p.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New(errors.ErrCodeReadinessTimeout,
		"server not ready after %d probes of %s", p.Attempts, url)
}

func (p *Prober) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
