package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.WithClock(func() time.Time { return testNow })
}

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func posting(title, company, location, url string) *model.Posting {
	return &model.Posting{
		Title:       title,
		Company:     company,
		Location:    location,
		Description: "Contract role.",
		Source:      "test",
		SourceURL:   url,
		JobType:     "contract",
		PostedDate:  ago(2 * time.Hour),
	}
}

func mustInsert(t *testing.T, s *SQLiteStore, p *model.Posting) int64 {
	t.Helper()
	id, err := s.InsertPosting(context.Background(), p)
	if err != nil {
		t.Fatalf("InsertPosting(%q): %v", p.Title, err)
	}
	return id
}

func TestInsertThenGetPosting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := posting("Go Dev", "Acme", "Remote", "https://x/1")
	p.SalaryMin = f(120000)
	p.IsCorpToCorp = true
	p.RelevanceScore = 0.8
	p.Analysis = &model.Analysis{KeySkills: []string{"go"}, ExperienceLevel: model.LevelSenior, Provider: "heuristic"}

	id := mustInsert(t, s, p)
	if id == 0 || p.ID != id {
		t.Fatalf("id = %d, p.ID = %d", id, p.ID)
	}
	if !p.ScrapedDate.Equal(testNow) {
		t.Errorf("ScrapedDate = %v, want clock time", p.ScrapedDate)
	}

	got, err := s.GetPosting(ctx, id)
	if err != nil {
		t.Fatalf("GetPosting: %v", err)
	}
	if got.Title != "Go Dev" || !got.IsCorpToCorp || got.RelevanceScore != 0.8 {
		t.Errorf("got %+v", got)
	}
	if got.SalaryMin == nil || *got.SalaryMin != 120000 || got.SalaryMax != nil {
		t.Errorf("salary = %v/%v", got.SalaryMin, got.SalaryMax)
	}
	if got.PostedDate == nil || !got.PostedDate.Equal(*p.PostedDate) {
		t.Errorf("PostedDate = %v, want %v", got.PostedDate, p.PostedDate)
	}
	if got.Analysis == nil || got.Analysis.ExperienceLevel != model.LevelSenior || got.Analysis.Provider != "heuristic" {
		t.Errorf("Analysis = %+v", got.Analysis)
	}
}

func TestGetPostingNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetPosting(context.Background(), 42); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertExactKeyIsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, posting("Go Dev", "Acme", "Remote", "https://x/1"))
	if _, err := s.InsertPosting(ctx, posting("Go Dev", "Acme", "Remote", "https://x/1")); !errors.Is(err, model.ErrDuplicate) {
		t.Fatalf("second insert err = %v, want ErrDuplicate", err)
	}
	// Same role on another URL is a different exact key.
	mustInsert(t, s, posting("Go Dev", "Acme", "Remote", "https://y/1"))

	exists, err := s.ExistsExact(ctx, "Go Dev", "Acme", "Remote", "https://x/1")
	if err != nil || !exists {
		t.Errorf("ExistsExact = %v, %v; want true", exists, err)
	}
	exists, _ = s.ExistsExact(ctx, "Go Dev", "Acme", "Austin", "https://x/1")
	if exists {
		t.Error("ExistsExact matched a different location")
	}
}

func TestPostingsByCompanySince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Scraped just now but posted long ago: outside the window.
	old := posting("Old", "Acme", "", "https://x/old")
	old.PostedDate = ago(30 * 24 * time.Hour)
	mustInsert(t, s, old)
	undated := posting("Undated", "Acme", "", "https://x/undated")
	undated.PostedDate = nil
	mustInsert(t, s, undated)
	rescraped := posting("New", "Acme", "", "https://x/new")
	rescraped.ScrapedDate = testNow.Add(-10 * 24 * time.Hour)
	mustInsert(t, s, rescraped)
	mustInsert(t, s, posting("Other", "Globex", "", "https://x/other"))

	got, err := s.PostingsByCompanySince(ctx, "Acme", testNow.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("PostingsByCompanySince: %v", err)
	}
	if len(got) != 1 || got[0].Title != "New" {
		t.Fatalf("got %+v, want only New", got)
	}
}

func TestSearchFiltersAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := posting("Senior Python Developer", "Acme", "San Francisco, CA", "https://x/a")
	a.RelevanceScore, a.IsCorpToCorp, a.SalaryMin, a.SalaryMax = 0.9, true, f(120000), f(150000)
	bp := posting("Python Data Engineer", "Globex", "Remote", "https://x/b")
	bp.RelevanceScore, bp.SalaryMin = 0.6, f(90000)
	c := posting("Java Developer", "Initech", "Austin, TX", "https://x/c")
	c.RelevanceScore, c.PostedDate = 0.95, ago(72*time.Hour)
	d := posting("Python Contractor", "Hooli", "Remote", "https://x/d")
	d.RelevanceScore, d.JobType, d.Source = 0.9, "full-time", "lever"
	d.PostedDate = ago(30 * time.Minute)
	for _, p := range []*model.Posting{a, bp, c, d} {
		mustInsert(t, s, p)
	}

	tests := []struct {
		name string
		q    model.PostingQuery
		want []string
	}{
		{"all by relevance then recency", model.PostingQuery{}, []string{"Java Developer", "Python Contractor", "Senior Python Developer", "Python Data Engineer"}},
		{"keyword", model.PostingQuery{Keywords: "python"}, []string{"Python Contractor", "Senior Python Developer", "Python Data Engineer"}},
		{"location", model.PostingQuery{Location: "remote"}, []string{"Python Contractor", "Python Data Engineer"}},
		{"salary bounds", model.PostingQuery{MinSalary: f(100000), MaxSalary: f(160000)}, []string{"Senior Python Developer"}},
		{"job type", model.PostingQuery{JobType: "full-time"}, []string{"Python Contractor"}},
		{"source", model.PostingQuery{Source: "lever"}, []string{"Python Contractor"}},
		{"c2c", model.PostingQuery{IsCorpToCorp: b(true)}, []string{"Senior Python Developer"}},
		{"min relevance", model.PostingQuery{MinRelevance: 0.9}, []string{"Java Developer", "Python Contractor", "Senior Python Developer"}},
		{"posted within", model.PostingQuery{PostedWithinHours: 24}, []string{"Python Contractor", "Senior Python Developer", "Python Data Engineer"}},
		{"limit", model.PostingQuery{Limit: 1}, []string{"Java Developer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.q)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			var titles []string
			for _, p := range got {
				titles = append(titles, p.Title)
			}
			if len(titles) != len(tt.want) {
				t.Fatalf("titles = %v, want %v", titles, tt.want)
			}
			for i := range titles {
				if titles[i] != tt.want[i] {
					t.Fatalf("titles = %v, want %v", titles, tt.want)
				}
			}
		})
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pct := posting("Go Dev", "Acme", "Remote", "https://x/pct")
	pct.Description = "Remote 100% of the time."
	mustInsert(t, s, pct)
	other := posting("Go Dev", "Globex", "New_York", "https://x/other")
	other.Description = "Remote 1000 days a year."
	mustInsert(t, s, other)
	mustInsert(t, s, posting("Go Dev", "Initech", "NewXYork", "https://x/x"))

	tests := []struct {
		name string
		q    model.PostingQuery
		want []string
	}{
		{"percent", model.PostingQuery{Keywords: "100%"}, []string{"Acme"}},
		{"underscore", model.PostingQuery{Location: "new_york"}, []string{"Globex"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.q)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			var companies []string
			for _, p := range got {
				companies = append(companies, p.Company)
			}
			if len(companies) != len(tt.want) || companies[0] != tt.want[0] {
				t.Fatalf("companies = %v, want %v", companies, tt.want)
			}
		})
	}
}

func TestSearchCapsLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < model.MaxQueryLimit+5; i++ {
		mustInsert(t, s, posting("Dev", "Acme", "", fmt.Sprintf("https://x/%d", i)))
	}
	got, err := s.Search(context.Background(), model.PostingQuery{Limit: 500})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != model.MaxQueryLimit {
		t.Fatalf("len = %d, want %d", len(got), model.MaxQueryLimit)
	}
}

func TestUpdatePostingAndScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustInsert(t, s, posting("Go Dev", "Acme", "", "https://x/1"))

	if err := s.UpdatePosting(ctx, id, model.PostingUpdate{IsApplied: b(true)}); err != nil {
		t.Fatalf("UpdatePosting: %v", err)
	}
	if err := s.UpdateScore(ctx, id, 0.42); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	got, _ := s.GetPosting(ctx, id)
	if !got.IsApplied || got.IsFavorited || got.RelevanceScore != 0.42 {
		t.Errorf("got applied=%v favorited=%v score=%v", got.IsApplied, got.IsFavorited, got.RelevanceScore)
	}

	if err := s.UpdatePosting(ctx, id+100, model.PostingUpdate{IsFavorited: b(true)}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
	if err := s.UpdateScore(ctx, id+100, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("score missing = %v, want ErrNotFound", err)
	}
	if err := s.UpdatePosting(ctx, id, model.PostingUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}
}

func TestDeletePostedBeforeKeepsUndated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := posting("Old", "Acme", "", "https://x/old")
	old.PostedDate = ago(40 * 24 * time.Hour)
	undated := posting("Undated", "Acme", "", "https://x/undated")
	undated.PostedDate = nil
	mustInsert(t, s, old)
	mustInsert(t, s, undated)
	mustInsert(t, s, posting("Fresh", "Acme", "", "https://x/fresh"))

	n, err := s.DeletePostedBefore(ctx, testNow.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("DeletePostedBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	all, _ := s.ListPostings(ctx)
	if len(all) != 2 {
		t.Errorf("remaining = %d, want 2", len(all))
	}
}

func TestListPostingsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	older := posting("Older", "Acme", "", "https://x/1")
	older.PostedDate = ago(48 * time.Hour)
	mustInsert(t, s, older)
	mustInsert(t, s, posting("Newer", "Acme", "", "https://x/2"))

	all, err := s.ListPostings(context.Background())
	if err != nil {
		t.Fatalf("ListPostings: %v", err)
	}
	if len(all) != 2 || all[0].Title != "Newer" {
		t.Fatalf("order = %+v", all)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, c := range []string{"Acme", "Acme", "Globex"} {
		p := posting("Dev", c, "Remote", "https://x/"+string(rune('a'+i)))
		p.RelevanceScore = 0.5
		p.IsCorpToCorp = c == "Acme"
		if i == 2 {
			p.ScrapedDate = testNow.Add(-48 * time.Hour)
			p.RelevanceScore = 0.8
		}
		mustInsert(t, s, p)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.CorpToCorp != 2 || st.Last24h != 2 {
		t.Errorf("stats = %+v", st)
	}
	if st.AvgRelevance < 0.599 || st.AvgRelevance > 0.601 {
		t.Errorf("AvgRelevance = %v, want 0.6", st.AvgRelevance)
	}
	if len(st.TopCompanies) != 2 || st.TopCompanies[0] != (model.Count{Label: "Acme", N: 2}) {
		t.Errorf("TopCompanies = %+v", st.TopCompanies)
	}
	if len(st.TopLocations) != 1 || st.TopLocations[0].N != 3 {
		t.Errorf("TopLocations = %+v", st.TopLocations)
	}
}

func TestAlertLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &model.AlertSubscription{Keywords: "python react", Location: "USA", MinSalary: f(100000), Email: "a@example.com"}
	id, err := s.CreateAlert(ctx, a)
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if !a.IsActive || a.ID != id {
		t.Errorf("created alert = %+v", a)
	}
	if _, err := s.CreateAlert(ctx, &model.AlertSubscription{Keywords: "go", Email: "b@example.com"}); err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if _, err := s.CreateAlert(ctx, &model.AlertSubscription{Email: "c@example.com"}); err == nil {
		t.Error("expected error for alert without keywords")
	}

	mine, _ := s.ListAlerts(ctx, "a@example.com")
	if len(mine) != 1 || mine[0].MinSalary == nil || *mine[0].MinSalary != 100000 {
		t.Fatalf("ListAlerts(a) = %+v", mine)
	}

	if err := s.DeactivateAlert(ctx, id); err != nil {
		t.Fatalf("DeactivateAlert: %v", err)
	}
	active, _ := s.ActiveAlerts(ctx)
	if len(active) != 1 || active[0].Email != "b@example.com" {
		t.Errorf("ActiveAlerts = %+v", active)
	}
	all, _ := s.ListAlerts(ctx, "")
	if len(all) != 2 {
		t.Errorf("ListAlerts(all) = %d, want 2", len(all))
	}
	if err := s.DeactivateAlert(ctx, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("deactivate missing = %v, want ErrNotFound", err)
	}
}

func TestDeliveryLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pid := mustInsert(t, s, posting("Go Dev", "Acme", "", "https://x/1"))
	aid, _ := s.CreateAlert(ctx, &model.AlertSubscription{Keywords: "go", Email: "a@example.com"})

	done, err := s.Delivered(ctx, aid, pid)
	if err != nil || done {
		t.Fatalf("Delivered before mark = %v, %v", done, err)
	}
	if err := s.MarkDelivered(ctx, aid, pid); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := s.MarkDelivered(ctx, aid, pid); err != nil {
		t.Fatalf("second MarkDelivered: %v", err)
	}
	if done, _ := s.Delivered(ctx, aid, pid); !done {
		t.Error("expected delivery to be recorded")
	}

	// Deleting the posting drops its delivery records.
	if err := s.DeletePosting(ctx, pid); err != nil {
		t.Fatalf("DeletePosting: %v", err)
	}
	if done, _ := s.Delivered(ctx, aid, pid); done {
		t.Error("delivery record survived posting delete")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	mustInsert(t, s, posting("Go Dev", "Acme", "", "https://x/1"))
	s.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	all, _ := s2.ListPostings(context.Background())
	if len(all) != 1 {
		t.Fatalf("postings after reopen = %d, want 1", len(all))
	}
}
