package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/scoring"
)

// --- Fakes ---

// MockCollector returns canned postings or an error.
type MockCollector struct {
	name  string
	Raws  []model.RawPosting
	Err   error
	calls int
	mu    sync.Mutex
}

func (c *MockCollector) Name() string { return c.name }

func (c *MockCollector) Collect(_ context.Context, _, _ string) ([]model.RawPosting, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Raws, c.Err
}

// InMemoryStore enforces the exact key like the SQLite unique index does.
type InMemoryStore struct {
	postings []model.Posting
	failFor  string
}

func key(title, company, location, url string) string {
	return strings.Join([]string{title, company, location, url}, "|")
}

func (s *InMemoryStore) InsertPosting(_ context.Context, p *model.Posting) (int64, error) {
	if p.Title == s.failFor {
		return 0, errors.New("database is locked")
	}
	for _, e := range s.postings {
		if key(e.Title, e.Company, e.Location, e.SourceURL) == key(p.Title, p.Company, p.Location, p.SourceURL) {
			return 0, model.ErrDuplicate
		}
	}
	p.ID = int64(len(s.postings) + 1)
	s.postings = append(s.postings, *p)
	return p.ID, nil
}

// ExactDeduper only knows about postings present when it was built, so a
// second copy within one batch reaches the store and trips ErrDuplicate.
type ExactDeduper struct {
	seen map[string]bool
}

func (d *ExactDeduper) IsDuplicate(_ context.Context, r model.RawPosting) (bool, error) {
	return d.seen[key(r.Title, r.Company, r.Location, r.SourceURL)], nil
}

// StubAnalyzer returns a fixed analysis, or an error for titles in failFor.
type StubAnalyzer struct {
	analysis model.Analysis
	failFor  string
}

func (a *StubAnalyzer) Analyze(_ context.Context, in model.AnalysisInput) (model.Analysis, error) {
	if in.Title == a.failFor {
		return model.Analysis{}, errors.New("upstream 503")
	}
	return a.analysis, nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func raw(title, url string) model.RawPosting {
	posted := now.Add(-time.Hour)
	return model.RawPosting{
		Title:       title,
		Company:     "TechCorp",
		Location:    "Remote, USA",
		Description: "Python and React work. Rate $60 per hour, corp to corp.",
		Source:      "mock",
		SourceURL:   url,
		PostedDate:  &posted,
	}
}

func newPipeline(collectors []model.Collector, st *InMemoryStore, d Deduper, a model.Analyzer) *Pipeline {
	return New(Config{
		Collectors: collectors,
		Store:      st,
		Dedup:      d,
		Analyzer:   a,
		Fallback:   &StubAnalyzer{analysis: model.Analysis{Provider: "heuristic"}},
		Scorer:     scoring.NewScorer(scoring.WithClock(func() time.Time { return now })),
		Logger:     discardLogger(),
	}).WithClock(func() time.Time { return now })
}

// --- Tests ---

func TestIngest_CountsAndDerivedFields(t *testing.T) {
	st := &InMemoryStore{}
	d := &ExactDeduper{seen: map[string]bool{key("Old Role", "TechCorp", "Remote, USA", "u0"): true}}
	a := &StubAnalyzer{analysis: model.Analysis{IsCorpToCorp: true, ExperienceLevel: "expert", Provider: "openai"}}
	p := newPipeline(nil, st, d, a)

	res := p.Ingest(context.Background(), []model.RawPosting{
		raw("Python Dev", "u1"),
		raw("Old Role", "u0"),
		raw("React Dev", "u2"),
	}, nil)

	if res.Scraped != 3 || res.Inserted != 2 || res.Duplicates != 1 || res.CorpToCorp != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	got := st.postings[0]
	if got.JobType != "contract" {
		t.Errorf("JobType = %q, want default contract", got.JobType)
	}
	if got.SalaryMin == nil || *got.SalaryMin != 124800 || *got.SalaryMax != 124800 {
		t.Errorf("salary = %v/%v, want 124800 from hourly rate", got.SalaryMin, got.SalaryMax)
	}
	if !got.ScrapedDate.Equal(now) {
		t.Errorf("ScrapedDate = %v, want %v", got.ScrapedDate, now)
	}
	if got.Analysis == nil || got.Analysis.ExperienceLevel != model.LevelSenior {
		t.Errorf("analysis not normalized: %+v", got.Analysis)
	}
	if got.RelevanceScore <= 0 || got.RelevanceScore > 1 {
		t.Errorf("RelevanceScore = %v", got.RelevanceScore)
	}
}

func TestIngest_AnalysisSalaryWins(t *testing.T) {
	st := &InMemoryStore{}
	lo, hi := 150000.0, 170000.0
	a := &StubAnalyzer{analysis: model.Analysis{SalaryMin: &lo, SalaryMax: &hi}}
	p := newPipeline(nil, st, &ExactDeduper{}, a)

	p.Ingest(context.Background(), []model.RawPosting{raw("Python Dev", "u1")}, nil)
	if got := st.postings[0]; *got.SalaryMin != lo || *got.SalaryMax != hi {
		t.Errorf("salary = %v-%v, want analysis values", *got.SalaryMin, *got.SalaryMax)
	}
}

func TestIngest_EnrichmentFailureFallsBack(t *testing.T) {
	st := &InMemoryStore{}
	a := &StubAnalyzer{failFor: "Python Dev"}
	p := newPipeline(nil, st, &ExactDeduper{}, a)

	res := p.Ingest(context.Background(), []model.RawPosting{raw("Python Dev", "u1"), raw("Go Dev", "u2")}, nil)
	if res.Inserted != 2 {
		t.Fatalf("Inserted = %d, want 2", res.Inserted)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want one EnrichmentError", res.Errors)
	}
	var ee *model.EnrichmentError
	if !errors.As(res.Errors[0], &ee) {
		t.Errorf("expected EnrichmentError, got %T", res.Errors[0])
	}
	if st.postings[0].Analysis.Provider != "heuristic" {
		t.Errorf("provider = %q, want heuristic fallback", st.postings[0].Analysis.Provider)
	}
}

func TestIngest_PersistenceFailureDoesNotAbort(t *testing.T) {
	st := &InMemoryStore{failFor: "Python Dev"}
	p := newPipeline(nil, st, &ExactDeduper{}, &StubAnalyzer{})

	res := p.Ingest(context.Background(), []model.RawPosting{raw("Python Dev", "u1"), raw("Go Dev", "u2")}, nil)
	if res.Inserted != 1 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v, want 1 inserted 1 error", res)
	}
	var pe *model.PersistenceError
	if !errors.As(res.Errors[0], &pe) {
		t.Errorf("expected PersistenceError, got %T", res.Errors[0])
	}
}

func TestIngest_SameKeyTwiceInOneBatch(t *testing.T) {
	st := &InMemoryStore{}
	p := newPipeline(nil, st, &ExactDeduper{}, &StubAnalyzer{})

	res := p.Ingest(context.Background(), []model.RawPosting{raw("Python Dev", "u1"), raw("Python Dev", "u1")}, nil)
	if res.Inserted != 1 || res.Duplicates != 1 || len(st.postings) != 1 {
		t.Fatalf("result = %+v, stored %d; want exactly one posting", res, len(st.postings))
	}
}

func TestRun_CollectorFailureIsolated(t *testing.T) {
	good := &MockCollector{name: "good", Raws: []model.RawPosting{raw("Python Dev", "u1")}}
	bad := &MockCollector{name: "bad", Err: errors.New("HTTP 500")}
	st := &InMemoryStore{}
	p := newPipeline([]model.Collector{bad, good}, st, &ExactDeduper{}, &StubAnalyzer{})

	res := p.Run(context.Background(), "python", "USA")
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want one CollectorError", res.Errors)
	}
	var ce *model.CollectorError
	if !errors.As(res.Errors[0], &ce) || ce.Source != "bad" {
		t.Errorf("expected CollectorError from bad, got %v", res.Errors[0])
	}
}

func TestScrape_RunsEveryTerm(t *testing.T) {
	c := &MockCollector{name: "m"}
	p := newPipeline([]model.Collector{c}, &InMemoryStore{}, &ExactDeduper{}, &StubAnalyzer{})

	if _, err := p.Scrape(context.Background(), DefaultSearchTerms, "USA"); err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if c.calls != len(DefaultSearchTerms) {
		t.Errorf("collector called %d times, want %d", c.calls, len(DefaultSearchTerms))
	}
}

func TestScrape_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline([]model.Collector{&MockCollector{name: "m"}}, &InMemoryStore{}, &ExactDeduper{}, &StubAnalyzer{})
	if _, err := p.Scrape(ctx, []string{"a"}, "USA"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
