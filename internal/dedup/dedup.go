// Package dedup decides whether an incoming posting is already stored and
// sweeps duplicates that slipped into storage.
//
// Two policies live here and intentionally disagree:
//   - the pre-insert check treats (title, company, location, source_url) as the
//     exact key and falls back to fuzzy matching within one company;
//   - the sweep collapses postings by normalized (title, company, location) and
//     ignores source_url, so the same role posted on two boards is collapsed.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/textmatch"
)

const (
	// FuzzyWindow bounds how far back the fuzzy check looks.
	FuzzyWindow = 7 * 24 * time.Hour
	// FuzzyThreshold is the composite similarity a candidate must exceed.
	FuzzyThreshold = 0.8

	titleWeight       = 0.4
	locationWeight    = 0.2
	descriptionWeight = 0.4
	descriptionPrefix = 200
)

// Store is the slice of the persistence layer the detector needs.
type Store interface {
	ExistsExact(ctx context.Context, title, company, location, sourceURL string) (bool, error)
	PostingsByCompanySince(ctx context.Context, company string, since time.Time) ([]model.Posting, error)
	ListPostings(ctx context.Context) ([]model.Posting, error)
	DeletePosting(ctx context.Context, id int64) error
}

// Detector runs both dedup policies against a Store.
type Detector struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewDetector returns a Detector using the wall clock.
func NewDetector(store Store, logger *slog.Logger) *Detector {
	return &Detector{store: store, now: time.Now, logger: logger}
}

// WithClock replaces the clock used for the fuzzy window. Used in tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// IsDuplicate reports whether raw is already stored, exactly or approximately.
func (d *Detector) IsDuplicate(ctx context.Context, raw model.RawPosting) (bool, error) {
	exact, err := d.store.ExistsExact(ctx, raw.Title, raw.Company, raw.Location, raw.SourceURL)
	if err != nil {
		return false, fmt.Errorf("exact dedup check: %w", err)
	}
	if exact {
		return true, nil
	}

	recent, err := d.store.PostingsByCompanySince(ctx, raw.Company, d.now().Add(-FuzzyWindow))
	if err != nil {
		return false, fmt.Errorf("fuzzy dedup lookup: %w", err)
	}
	for _, p := range recent {
		if Composite(raw, p) > FuzzyThreshold {
			d.logger.Debug("fuzzy duplicate",
				"title", raw.Title,
				"company", raw.Company,
				"matched_id", p.ID,
			)
			return true, nil
		}
	}
	return false, nil
}

// Composite is the weighted title/location/description similarity between a
// candidate and a stored posting. Only the first 200 runes of each description count.
func Composite(raw model.RawPosting, p model.Posting) float64 {
	title := textmatch.Similarity(raw.Title, p.Title)
	loc := textmatch.Similarity(raw.Location, p.Location)
	desc := textmatch.Similarity(
		textmatch.Prefix(raw.Description, descriptionPrefix),
		textmatch.Prefix(p.Description, descriptionPrefix),
	)
	return titleWeight*title + locationWeight*loc + descriptionWeight*desc
}

// Signature is the sweep key: a hash of the normalized title, company and location.
func Signature(title, company, location string) uint64 {
	h := xxhash.New()
	for _, s := range []string{title, company, location} {
		h.WriteString(strings.ToLower(strings.TrimSpace(s)))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// SweepResult reports one RemoveDuplicates pass.
type SweepResult struct {
	Scanned int
	Removed int
	Errors  []error
}

func (r SweepResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("scanned", r.Scanned),
		slog.Int("removed", r.Removed),
		slog.Int("errors", len(r.Errors)),
	)
}

// Failures returns the per-item errors of the pass.
func (r SweepResult) Failures() []error { return r.Errors }

// RemoveDuplicates keeps the most recently posted posting per signature and
// deletes the rest, one row at a time. A failed delete is recorded and the
// sweep moves on.
func (d *Detector) RemoveDuplicates(ctx context.Context) (SweepResult, error) {
	postings, err := d.store.ListPostings(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list postings for dedup sweep: %w", err)
	}
	sortNewestFirst(postings)

	res := SweepResult{Scanned: len(postings)}
	seen := make(map[uint64]int64, len(postings))
	for _, p := range postings {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		sig := Signature(p.Title, p.Company, p.Location)
		keptID, dup := seen[sig]
		if !dup {
			seen[sig] = p.ID
			continue
		}

		if err := d.store.DeletePosting(ctx, p.ID); err != nil {
			res.Errors = append(res.Errors, &model.PersistenceError{
				Op:  "delete duplicate",
				Key: fmt.Sprintf("%d", p.ID),
				Err: err,
			})
			continue
		}
		res.Removed++
		d.logger.Debug("removed duplicate posting", "id", p.ID, "kept_id", keptID, "title", p.Title)
	}
	return res, nil
}

// sortNewestFirst orders by posted_date descending; postings without a date go
// last, ties fall back to the higher id.
func sortNewestFirst(ps []model.Posting) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i].PostedDate, ps[j].PostedDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return ps[i].ID > ps[j].ID
	})
}
