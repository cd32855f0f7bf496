package store

import (
	"context"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It never persists
// anything, so every posting appears new on each scrape.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) InsertPosting(context.Context, *model.Posting) (int64, error) { return 0, nil }
func (s *NopStore) ExistsExact(context.Context, string, string, string, string) (bool, error) {
	return false, nil
}
func (s *NopStore) PostingsByCompanySince(context.Context, string, time.Time) ([]model.Posting, error) {
	return nil, nil
}
func (s *NopStore) ListPostings(context.Context) ([]model.Posting, error) { return nil, nil }
func (s *NopStore) DeletePosting(context.Context, int64) error            { return nil }
