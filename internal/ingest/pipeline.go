// Package ingest turns collector output into scored, persisted postings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/c2cradar/internal/metrics"
	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/scoring"
)

const defaultJobType = "contract"

// DefaultSearchTerms are the keyword searches the scrape task runs when none are configured.
var DefaultSearchTerms = []string{
	"software developer",
	"software engineer",
	"python developer",
	"java developer",
	"full stack developer",
	"data scientist",
	"devops engineer",
	"cloud engineer",
}

// Store persists a new posting and returns its id. It must return
// model.ErrDuplicate when the exact key already exists.
type Store interface {
	InsertPosting(ctx context.Context, p *model.Posting) (int64, error)
}

// Deduper is the pre-insert duplicate check.
type Deduper interface {
	IsDuplicate(ctx context.Context, raw model.RawPosting) (bool, error)
}

// Result reports one ingestion batch.
type Result struct {
	Scraped    int
	Inserted   int
	Duplicates int
	CorpToCorp int
	Errors     []error
}

func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("scraped", r.Scraped),
		slog.Int("inserted", r.Inserted),
		slog.Int("duplicates", r.Duplicates),
		slog.Int("corp_to_corp", r.CorpToCorp),
		slog.Int("errors", len(r.Errors)),
	)
}

// Failures returns collector, enrichment and persistence errors of the batch.
func (r Result) Failures() []error { return r.Errors }

func (r *Result) merge(o Result) {
	r.Scraped += o.Scraped
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
	r.CorpToCorp += o.CorpToCorp
	r.Errors = append(r.Errors, o.Errors...)
}

// Pipeline runs collectors and ingests what they return.
type Pipeline struct {
	collectors  []model.Collector
	store       Store
	dedup       Deduper
	analyzer    model.Analyzer
	fallback    model.Analyzer
	scorer      *scoring.Scorer
	concurrency int
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Config holds the Pipeline collaborators. Fallback is used whenever Analyzer
// fails; it must not fail itself.
type Config struct {
	Collectors  []model.Collector
	Store       Store
	Dedup       Deduper
	Analyzer    model.Analyzer
	Fallback    model.Analyzer
	Scorer      *scoring.Scorer
	Concurrency int // collectors run in parallel, default 4
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// New builds a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	conc := cfg.Concurrency
	if conc <= 0 {
		conc = 4
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = cfg.Fallback
	}
	return &Pipeline{
		collectors:  cfg.Collectors,
		store:       cfg.Store,
		dedup:       cfg.Dedup,
		analyzer:    analyzer,
		fallback:    cfg.Fallback,
		scorer:      cfg.Scorer,
		concurrency: conc,
		now:         time.Now,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// WithClock replaces the clock used for scraped_date. Used in tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Scrape runs one search per term and ingests the results, term by term.
func (p *Pipeline) Scrape(ctx context.Context, terms []string, location string) (Result, error) {
	var total Result
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res := p.Run(ctx, term, location)
		p.logger.Info("search ingested", "keywords", term, "location", location, "result", res)
		total.merge(res)
	}
	return total, nil
}

// Run collects from every source and ingests the combined output.
func (p *Pipeline) Run(ctx context.Context, keywords, location string) Result {
	raws, errs := p.Collect(ctx, keywords, location)
	return p.Ingest(ctx, raws, errs)
}

// Collect queries all collectors concurrently. A failing source becomes a
// CollectorError; the others still contribute their postings.
func (p *Pipeline) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, []error) {
	batches := make([][]model.RawPosting, len(p.collectors))
	failures := make([]error, len(p.collectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, c := range p.collectors {
		g.Go(func() error {
			raws, err := c.Collect(gctx, keywords, location)
			if err != nil {
				failures[i] = &model.CollectorError{Source: c.Name(), Err: err}
				p.metrics.CollectorFailed(c.Name())
				p.logger.Warn("collector failed", "source", c.Name(), "keywords", keywords, "error", err)
				return nil
			}
			batches[i] = raws
			p.logger.Debug("collected", "source", c.Name(), "keywords", keywords, "count", len(raws))
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	var all []model.RawPosting
	var errs []error
	for i := range p.collectors {
		all = append(all, batches[i]...)
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
	}
	return all, errs
}

// Ingest processes each raw posting on its own. collectorErrs are carried
// into the result so callers see every failure of the run in one place.
func (p *Pipeline) Ingest(ctx context.Context, raws []model.RawPosting, collectorErrs []error) Result {
	res := Result{Scraped: len(raws), Errors: append([]error(nil), collectorErrs...)}

	for _, raw := range raws {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, ctx.Err())
			return res
		}
		outcome, err := p.ingestOne(ctx, raw, &res)
		if err != nil {
			res.Errors = append(res.Errors, err)
			p.metrics.Ingested("error")
			p.logger.Error("ingest posting failed", "title", raw.Title, "company", raw.Company, "error", err)
			continue
		}
		p.metrics.Ingested(outcome)
	}
	return res
}

func (p *Pipeline) ingestOne(ctx context.Context, raw model.RawPosting, res *Result) (string, error) {
	dup, err := p.dedup.IsDuplicate(ctx, raw)
	if err != nil {
		return "", &model.PersistenceError{Op: "dedup check", Key: raw.Title, Err: err}
	}
	if dup {
		res.Duplicates++
		return "duplicate", nil
	}

	analysis := p.analyze(ctx, raw, res)

	posting := model.Posting{
		Title:        raw.Title,
		Company:      raw.Company,
		Location:     raw.Location,
		Description:  raw.Description,
		Requirements: raw.Requirements,
		JobType:      raw.JobType,
		Source:       raw.Source,
		SourceURL:    raw.SourceURL,
		PostedDate:   raw.PostedDate,
		ScrapedDate:  p.now().UTC(),
		IsCorpToCorp: analysis.IsCorpToCorp,
		Analysis:     &analysis,
		ContactEmail: raw.ContactEmail,
		ContactPhone: raw.ContactPhone,
	}
	if posting.JobType == "" {
		posting.JobType = defaultJobType
	}

	posting.SalaryMin, posting.SalaryMax = analysis.SalaryMin, analysis.SalaryMax
	if posting.SalaryMin == nil && posting.SalaryMax == nil {
		posting.SalaryMin, posting.SalaryMax = ExtractSalary(raw.Description)
		if posting.SalaryMin == nil {
			posting.SalaryMin, posting.SalaryMax = ExtractSalary(raw.Requirements)
		}
	}

	posting.RelevanceScore = p.scorer.Score(posting, nil)

	id, err := p.store.InsertPosting(ctx, &posting)
	if errors.Is(err, model.ErrDuplicate) {
		res.Duplicates++
		return "duplicate", nil
	}
	if err != nil {
		return "", &model.PersistenceError{Op: "insert posting", Key: raw.Title, Err: err}
	}

	res.Inserted++
	if posting.IsCorpToCorp {
		res.CorpToCorp++
	}
	p.logger.Debug("inserted posting", "id", id, "title", posting.Title, "score", posting.RelevanceScore)
	return "inserted", nil
}

// analyze asks the primary analyzer and falls back to the heuristic one on
// failure. The failure is kept in res but does not stop the posting.
func (p *Pipeline) analyze(ctx context.Context, raw model.RawPosting, res *Result) model.Analysis {
	in := model.AnalysisInput{Title: raw.Title, Description: raw.Description, Requirements: raw.Requirements}

	a, err := p.analyzer.Analyze(ctx, in)
	if err == nil {
		a.Normalize()
		return a
	}
	res.Errors = append(res.Errors, &model.EnrichmentError{Title: raw.Title, Err: err})
	p.logger.Warn("enrichment failed, using heuristic", "title", raw.Title, "error", err)

	if p.fallback == nil {
		return model.Analysis{ExperienceLevel: model.LevelMid, UrgencyLevel: model.UrgencyMedium}
	}
	a, err = p.fallback.Analyze(ctx, in)
	if err != nil {
		return model.Analysis{ExperienceLevel: model.LevelMid, UrgencyLevel: model.UrgencyMedium}
	}
	a.Normalize()
	return a
}

// String is used by the CLI when printing a one-shot run.
func (r Result) String() string {
	return fmt.Sprintf("scraped=%d inserted=%d duplicates=%d corp_to_corp=%d errors=%d",
		r.Scraped, r.Inserted, r.Duplicates, r.CorpToCorp, len(r.Errors))
}
