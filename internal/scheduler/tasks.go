package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/c2cradar/internal/alert"
	"github.com/amishk599/c2cradar/internal/dedup"
	"github.com/amishk599/c2cradar/internal/ingest"
	"github.com/amishk599/c2cradar/internal/metrics"
	"github.com/amishk599/c2cradar/internal/scoring"
)

// Task ids. They appear in logs, metrics, status and the CLI.
const (
	TaskScrape    = "scrape_jobs"
	TaskNotify    = "check_notifications"
	TaskDedup     = "remove_duplicates"
	TaskRescore   = "update_scores"
	TaskRetention = "cleanup_old_jobs"
)

// Intervals sets how often each task fires.
type Intervals struct {
	Scrape    time.Duration
	Notify    time.Duration
	Dedup     time.Duration
	Rescore   time.Duration
	Retention time.Duration
}

// DefaultIntervals are 1h, 1h, 6h, 12h and 24h.
var DefaultIntervals = Intervals{
	Scrape:    time.Hour,
	Notify:    time.Hour,
	Dedup:     6 * time.Hour,
	Rescore:   12 * time.Hour,
	Retention: 24 * time.Hour,
}

// DefaultRetention is how old a posting may get before the retention sweep removes it.
const DefaultRetention = 30 * 24 * time.Hour

// RetentionStore deletes postings that went live before cutoff.
type RetentionStore interface {
	DeletePostedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionResult reports one retention sweep.
type RetentionResult struct {
	Cutoff  time.Time
	Removed int64
}

func (r RetentionResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("cutoff", r.Cutoff),
		slog.Int64("removed", r.Removed),
	)
}

func (r RetentionResult) Failures() []error { return nil }

// Components are the engines the five tasks drive.
type Components struct {
	Pipeline    *ingest.Pipeline
	SearchTerms []string
	Location    string

	Dispatcher *alert.Dispatcher
	Detector   *dedup.Detector
	Rescorer   *scoring.Rescorer

	Retention    RetentionStore
	RetentionAge time.Duration

	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Tasks builds the five recurring tasks. Zero intervals fall back to DefaultIntervals.
func Tasks(c Components, iv Intervals) []Task {
	iv = iv.withDefaults()
	now := c.Now
	if now == nil {
		now = time.Now
	}
	age := c.RetentionAge
	if age <= 0 {
		age = DefaultRetention
	}

	return []Task{
		{
			ID:       TaskScrape,
			Name:     "Scrape job postings",
			Interval: iv.Scrape,
			Run: func(ctx context.Context) (Result, error) {
				return c.Pipeline.Scrape(ctx, c.SearchTerms, c.Location)
			},
		},
		{
			ID:       TaskNotify,
			Name:     "Check alert notifications",
			Interval: iv.Notify,
			Run: func(ctx context.Context) (Result, error) {
				return c.Dispatcher.Run(ctx)
			},
		},
		{
			ID:       TaskDedup,
			Name:     "Remove duplicate postings",
			Interval: iv.Dedup,
			Run: func(ctx context.Context) (Result, error) {
				res, err := c.Detector.RemoveDuplicates(ctx)
				c.Metrics.SweepItems("dedup", res.Removed)
				return res, err
			},
		},
		{
			ID:       TaskRescore,
			Name:     "Update relevance scores",
			Interval: iv.Rescore,
			Run: func(ctx context.Context) (Result, error) {
				res, err := c.Rescorer.RescoreAll(ctx)
				c.Metrics.SweepItems("rescore", res.Updated)
				return res, err
			},
		},
		{
			ID:       TaskRetention,
			Name:     "Clean up old postings",
			Interval: iv.Retention,
			Run: func(ctx context.Context) (Result, error) {
				return RunRetention(ctx, c.Retention, now().Add(-age), c.Metrics)
			},
		},
	}
}

// RunRetention deletes postings that went live before cutoff.
func RunRetention(ctx context.Context, st RetentionStore, cutoff time.Time, m *metrics.Metrics) (RetentionResult, error) {
	n, err := st.DeletePostedBefore(ctx, cutoff)
	res := RetentionResult{Cutoff: cutoff, Removed: n}
	if err != nil {
		return res, err
	}
	m.SweepItems("retention", int(n))
	return res, nil
}

func (iv Intervals) withDefaults() Intervals {
	if iv.Scrape <= 0 {
		iv.Scrape = DefaultIntervals.Scrape
	}
	if iv.Notify <= 0 {
		iv.Notify = DefaultIntervals.Notify
	}
	if iv.Dedup <= 0 {
		iv.Dedup = DefaultIntervals.Dedup
	}
	if iv.Rescore <= 0 {
		iv.Rescore = DefaultIntervals.Rescore
	}
	if iv.Retention <= 0 {
		iv.Retention = DefaultIntervals.Retention
	}
	return iv
}
