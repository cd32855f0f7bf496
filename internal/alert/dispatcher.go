package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/c2cradar/internal/metrics"
	"github.com/amishk599/c2cradar/internal/model"
)

// DefaultWindow limits a pass to postings that went live recently.
const DefaultWindow = 24 * time.Hour

// Store is the slice of the persistence layer the dispatcher reads.
type Store interface {
	ActiveAlerts(ctx context.Context) ([]model.AlertSubscription, error)
	PostingsPostedSince(ctx context.Context, since time.Time) ([]model.Posting, error)
}

// Ledger remembers which (alert, posting) pairs were already delivered.
type Ledger interface {
	Delivered(ctx context.Context, alertID, postingID int64) (bool, error)
	MarkDelivered(ctx context.Context, alertID, postingID int64) error
}

// NotifyResult reports one dispatch pass.
type NotifyResult struct {
	AlertsChecked int
	Matches       int
	Sent          int
	Skipped       int // already delivered in an earlier pass
	Errors        []error
}

func (r NotifyResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("alerts_checked", r.AlertsChecked),
		slog.Int("matches", r.Matches),
		slog.Int("sent", r.Sent),
		slog.Int("skipped", r.Skipped),
		slog.Int("errors", len(r.Errors)),
	)
}

// Failures returns the per-delivery errors of the pass.
func (r NotifyResult) Failures() []error { return r.Errors }

// Dispatcher runs the notification pass: match recent postings against active
// alerts and deliver each new pair once.
type Dispatcher struct {
	store    Store
	matcher  *Matcher
	notifier model.Notifier
	ledger   Ledger
	window   time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher. ledger may be nil, in which case every
// match is delivered on every pass.
func NewDispatcher(store Store, matcher *Matcher, n model.Notifier, ledger Ledger, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		matcher:  matcher,
		notifier: n,
		ledger:   ledger,
		window:   DefaultWindow,
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

// WithClock replaces the clock used for the posting window. Used in tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// WithWindow limits a pass to postings posted within d. Non-positive d is ignored.
func (d *Dispatcher) WithWindow(w time.Duration) *Dispatcher {
	if w > 0 {
		d.window = w
	}
	return d
}

// Run performs one pass. Only loading alerts or postings can fail the whole
// pass; a failed delivery is counted and the pass continues.
func (d *Dispatcher) Run(ctx context.Context) (NotifyResult, error) {
	subs, err := d.store.ActiveAlerts(ctx)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("load active alerts: %w", err)
	}
	res := NotifyResult{AlertsChecked: len(subs)}
	if len(subs) == 0 {
		return res, nil
	}

	postings, err := d.store.PostingsPostedSince(ctx, d.now().Add(-d.window))
	if err != nil {
		return res, fmt.Errorf("load recent postings: %w", err)
	}

	matches := d.matcher.Match(postings, subs)
	res.Matches = len(matches)

	for _, m := range matches {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		sub, p := m.Subscription, m.Posting

		if d.ledger != nil {
			done, err := d.ledger.Delivered(ctx, sub.ID, p.ID)
			if err != nil {
				d.logger.Warn("delivery ledger lookup failed, sending anyway",
					"alert_id", sub.ID, "posting_id", p.ID, "error", err)
			} else if done {
				res.Skipped++
				d.metrics.AlertDelivered("skipped")
				continue
			}
		}

		err := d.notifier.Deliver(ctx, model.Delivery{Posting: p, Email: sub.Email, Keywords: sub.Keywords})
		if err != nil {
			res.Errors = append(res.Errors, &model.DeliveryError{Email: sub.Email, PostingID: p.ID, Err: err})
			d.metrics.AlertDelivered("failed")
			d.logger.Error("alert delivery failed",
				"alert_id", sub.ID, "posting_id", p.ID, "email", sub.Email, "error", err)
			continue
		}
		res.Sent++
		d.metrics.AlertDelivered("sent")

		if d.ledger != nil {
			if err := d.ledger.MarkDelivered(ctx, sub.ID, p.ID); err != nil {
				res.Errors = append(res.Errors, &model.PersistenceError{
					Op:  "record delivery",
					Key: fmt.Sprintf("%d/%d", sub.ID, p.ID),
					Err: err,
				})
			}
		}
	}
	return res, nil
}
