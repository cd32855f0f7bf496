package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/amishk599/c2cradar/internal/model"
)

// Hysteresis is how far a recomputed score must move before it is written back.
const Hysteresis = 0.1

// Store is the slice of the persistence layer the rescoring sweep needs.
type Store interface {
	ListPostings(ctx context.Context) ([]model.Posting, error)
	UpdateScore(ctx context.Context, id int64, score float64) error
}

// SweepResult reports one RescoreAll pass.
type SweepResult struct {
	Scanned int
	Updated int
	Errors  []error
}

func (r SweepResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("scanned", r.Scanned),
		slog.Int("updated", r.Updated),
		slog.Int("errors", len(r.Errors)),
	)
}

// Failures returns the per-item errors of the pass.
func (r SweepResult) Failures() []error { return r.Errors }

// Rescorer recomputes stored scores with a Scorer.
type Rescorer struct {
	store  Store
	scorer *Scorer
	logger *slog.Logger
}

// NewRescorer returns a Rescorer.
func NewRescorer(store Store, scorer *Scorer, logger *slog.Logger) *Rescorer {
	return &Rescorer{store: store, scorer: scorer, logger: logger}
}

// RescoreAll recomputes every stored posting. Only postings whose score moved
// by more than Hysteresis are written and counted. Each write stands alone.
func (r *Rescorer) RescoreAll(ctx context.Context) (SweepResult, error) {
	postings, err := r.store.ListPostings(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list postings for rescoring: %w", err)
	}

	res := SweepResult{Scanned: len(postings)}
	for _, p := range postings {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		score := r.scorer.Score(p, nil)
		if math.Abs(p.RelevanceScore-score) <= Hysteresis {
			continue
		}
		if err := r.store.UpdateScore(ctx, p.ID, score); err != nil {
			res.Errors = append(res.Errors, &model.PersistenceError{
				Op:  "update score",
				Key: fmt.Sprintf("%d", p.ID),
				Err: err,
			})
			continue
		}
		res.Updated++
		r.logger.Debug("rescored posting", "id", p.ID, "old", p.RelevanceScore, "new", score)
	}
	return res, nil
}
