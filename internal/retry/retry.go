// Package retry retries transient collector and analyzer failures with
// exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

// Policy is the retry budget shared by the decorators.
// MaxRetries is the number of additional attempts after the first failure.
// BaseDelay is the delay before the first retry, doubled on each subsequent retry.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy retries twice starting at 5s.
var DefaultPolicy = Policy{MaxRetries: 2, BaseDelay: 5 * time.Second}

// Do calls fn until it succeeds, fails permanently or the budget runs out.
// op names the operation in log lines.
func Do(ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		logger.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS, etc.) are retryable.
	return true
}

// Collector is a decorator that retries the wrapped collector.
type Collector struct {
	inner  model.Collector
	policy Policy
	logger *slog.Logger
}

var _ model.Collector = (*Collector)(nil)

// NewCollector wraps a collector with retry logic.
func NewCollector(inner model.Collector, p Policy, logger *slog.Logger) *Collector {
	return &Collector{inner: inner, policy: p, logger: logger}
}

func (c *Collector) Name() string { return c.inner.Name() }

func (c *Collector) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	var out []model.RawPosting
	err := Do(ctx, c.policy, c.logger, "collect "+c.inner.Name(), func(ctx context.Context) error {
		var err error
		out, err = c.inner.Collect(ctx, keywords, location)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Analyzer is a decorator that retries the wrapped analyzer, mostly for LLM
// rate limits.
type Analyzer struct {
	inner  model.Analyzer
	policy Policy
	logger *slog.Logger
}

var _ model.Analyzer = (*Analyzer)(nil)

// NewAnalyzer wraps an analyzer with retry logic.
func NewAnalyzer(inner model.Analyzer, p Policy, logger *slog.Logger) *Analyzer {
	return &Analyzer{inner: inner, policy: p, logger: logger}
}

func (a *Analyzer) Analyze(ctx context.Context, in model.AnalysisInput) (model.Analysis, error) {
	var out model.Analysis
	err := Do(ctx, a.policy, a.logger, "analyze", func(ctx context.Context) error {
		var err error
		out, err = a.inner.Analyze(ctx, in)
		return err
	})
	return out, err
}
