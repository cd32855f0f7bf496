package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "dedup.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.WithClock(func() time.Time { return now })
}

func TestIsDuplicate_SQLiteWindowUsesPostedDate(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		posted *time.Time
		want   bool
	}{
		{"posted two days ago", at(48 * time.Hour), true},
		{"posted a month ago", at(30 * 24 * time.Hour), false},
		{"undated", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSQLiteStore(t)
			// Scraped an hour ago whatever its posted date.
			if _, err := s.InsertPosting(ctx, &model.Posting{
				Title: "Senior Go Engineer", Company: "Acme", Location: "Austin, TX",
				Description: desc, Source: "test", SourceURL: "https://board-a/1",
				PostedDate: tt.posted, ScrapedDate: now.Add(-time.Hour),
			}); err != nil {
				t.Fatalf("InsertPosting: %v", err)
			}

			dup, err := newDetector(s).IsDuplicate(ctx, model.RawPosting{
				Title: "Senior Go Engineer", Company: "Acme", Location: "Austin, TX",
				SourceURL: "https://board-b/9", Description: desc,
			})
			if err != nil {
				t.Fatalf("IsDuplicate: %v", err)
			}
			if dup != tt.want {
				t.Errorf("IsDuplicate = %v, want %v", dup, tt.want)
			}
		})
	}
}
