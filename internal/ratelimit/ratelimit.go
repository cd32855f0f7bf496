// Package ratelimit spaces out requests to the same job-board backend.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/c2cradar/internal/model"
)

// SourceLimiter keeps one token bucket per backend ("greenhouse", "lever").
// Collectors for different boards on the same backend share a bucket.
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
}

// NewSourceLimiter creates a limiter allowing one request per minDelay for
// each backend.
func NewSourceLimiter(minDelay time.Duration) *SourceLimiter {
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (l *SourceLimiter) limiter(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[source]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.minDelay), 1)
		l.limiters[source] = lim
	}
	return lim
}

// Wait blocks until the backend's bucket has a token or ctx is done.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	if l.minDelay <= 0 {
		return nil
	}
	if err := l.limiter(source).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", source, err)
	}
	return nil
}

// Collector is a decorator that waits on the shared limiter before
// delegating to the wrapped collector.
type Collector struct {
	inner   model.Collector
	limiter *SourceLimiter
	source  string
}

var _ model.Collector = (*Collector)(nil)

// NewCollector wraps a collector with backend-level rate limiting.
// All collectors targeting the same backend should share the same limiter.
func NewCollector(inner model.Collector, limiter *SourceLimiter, source string) *Collector {
	return &Collector{inner: inner, limiter: limiter, source: source}
}

func (c *Collector) Name() string { return c.inner.Name() }

func (c *Collector) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	if err := c.limiter.Wait(ctx, c.source); err != nil {
		return nil, err
	}
	return c.inner.Collect(ctx, keywords, location)
}
