package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/alert"
	"github.com/amishk599/c2cradar/internal/collector"
	"github.com/amishk599/c2cradar/internal/config"
	"github.com/amishk599/c2cradar/internal/dedup"
	"github.com/amishk599/c2cradar/internal/enrich"
	"github.com/amishk599/c2cradar/internal/ingest"
	"github.com/amishk599/c2cradar/internal/ledger"
	"github.com/amishk599/c2cradar/internal/metrics"
	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/notifier"
	"github.com/amishk599/c2cradar/internal/ratelimit"
	"github.com/amishk599/c2cradar/internal/retry"
	"github.com/amishk599/c2cradar/internal/scheduler"
	"github.com/amishk599/c2cradar/internal/scoring"
	"github.com/amishk599/c2cradar/internal/secrets"
	"github.com/amishk599/c2cradar/internal/store"
)

var (
	cfgPath    string
	debug      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "c2cradar",
	Short: "Corp-to-corp job radar",
	Long:  "c2cradar collects job postings, scores them for corp-to-corp contractors and e-mails alert matches.",
	// Default to `start` so that `c2cradar` with no args runs the daemon.
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: C2CRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "log as JSON and print JSON instead of tables")
}

// loadConfig reads .env files, resolves the config path and parses it.
// Priority: --config > C2CRADAR_CONFIG env var > "./config.yaml"
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	return config.Load(config.ResolvePath(cfgPath))
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// app holds everything the commands share. Fields are built lazily by the
// setup helpers so one-shot commands only open what they use.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	http    *http.Client
	store   *store.SQLiteStore
}

// newApp loads config and opens the database.
func newApp() (*app, error) {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		http:   &http.Client{Timeout: 30 * time.Second},
		store:  st,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) retryPolicy() retry.Policy {
	return retry.Policy{MaxRetries: a.cfg.Scraping.MaxRetries, BaseDelay: a.cfg.Scraping.RetryDelay}
}

// collectors builds every enabled collector, wrapped with retry and a
// per-source rate limit.
func (a *app) collectors() []model.Collector {
	limiter := ratelimit.NewSourceLimiter(a.cfg.Scraping.MinDelay)
	a.logger.Info("rate limiter configured", "min_delay", a.cfg.Scraping.MinDelay.String())

	var out []model.Collector
	for _, c := range a.cfg.Collectors {
		if !c.Enabled {
			continue
		}

		var col model.Collector
		switch c.Type {
		case config.CollectorGreenhouse:
			col = collector.NewGreenhouse(c.BoardToken, c.Name, a.http)
		case config.CollectorLever:
			col = collector.NewLever(c.Slug, c.Name, a.http)
		case config.CollectorAshby:
			col = collector.NewAshby(c.BoardToken, c.Name, a.http)
		case config.CollectorGem:
			col = collector.NewGem(c.BoardToken, c.Name, a.http)
		case config.CollectorWorkday:
			col = collector.NewWorkday(c.URL, c.Name, a.http)
		case config.CollectorFile:
			col = collector.NewFile(c.Path)
		default:
			a.logger.Warn("unsupported collector, skipping", "type", c.Type, "name", c.Name)
			continue
		}

		col = retry.NewCollector(col, a.retryPolicy(), a.logger)
		col = ratelimit.NewCollector(col, limiter, c.Type)
		out = append(out, col)
		a.logger.Info("registered collector", "name", col.Name(), "type", c.Type)
	}
	return out
}

// analyzers returns the configured analyzer and the heuristic fallback.
// analyzer is nil when no AI provider is configured.
func (a *app) analyzers(ctx context.Context) (analyzer, fallback model.Analyzer, err error) {
	fallback = enrich.NewHeuristic(a.cfg.CorpToCorpKeywords)

	var provider enrich.Provider
	switch a.cfg.AI.Provider {
	case config.ProviderOpenAI:
		provider = enrich.NewOpenAIProvider(a.cfg.AI.BaseURL, a.cfg.AI.APIKey, a.cfg.AI.Model,
			&http.Client{Timeout: a.cfg.AI.Timeout})
	case config.ProviderGemini:
		provider, err = enrich.NewGeminiProvider(ctx, a.cfg.AI.APIKey, a.cfg.AI.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini provider: %w", err)
		}
	default:
		a.logger.Info("no AI provider configured, using keyword heuristic")
		return nil, fallback, nil
	}

	a.logger.Info("AI enrichment enabled", "provider", provider.Name(), "model", a.cfg.AI.Model)
	llm := enrich.NewLLMAnalyzer(provider, enrich.JobAnalysisTemplate, a.logger)
	return retry.NewAnalyzer(llm, retry.Policy{MaxRetries: 1, BaseDelay: 2 * time.Second}, a.logger), fallback, nil
}

func (a *app) scorer() *scoring.Scorer {
	return scoring.NewScorer(
		scoring.WithTargetCountries(a.cfg.Scoring.TargetCountries),
		scoring.WithSkills(a.cfg.Scoring.Skills),
		scoring.WithContractTerms(a.cfg.Scoring.ContractTerms),
	)
}

// pipeline wires the ingestion pipeline. A non-nil st replaces the database,
// which is how dry runs avoid persisting anything.
func (a *app) pipeline(ctx context.Context, st ingest.Store, det ingest.Deduper) (*ingest.Pipeline, error) {
	cols := a.collectors()
	if len(cols) == 0 {
		return nil, fmt.Errorf("no collectors enabled")
	}
	analyzer, fallback, err := a.analyzers(ctx)
	if err != nil {
		return nil, err
	}
	return ingest.New(ingest.Config{
		Collectors:  cols,
		Store:       st,
		Dedup:       det,
		Analyzer:    analyzer,
		Fallback:    fallback,
		Scorer:      a.scorer(),
		Concurrency: a.cfg.Scraping.Concurrency,
		Metrics:     a.metrics,
		Logger:      a.logger,
	}), nil
}

func (a *app) searchTerms() []string {
	if len(a.cfg.Scraping.SearchTerms) > 0 {
		return a.cfg.Scraping.SearchTerms
	}
	return ingest.DefaultSearchTerms
}

// notifier returns e-mail delivery when enabled, logging otherwise, with an
// optional Slack mirror.
func (a *app) notifier() (model.Notifier, error) {
	var primary model.Notifier
	if a.cfg.Email.Enabled {
		pw, err := secrets.SMTPPassword(a.cfg.Email.Password, a.cfg.Email.KeyringAccount)
		if err != nil {
			return nil, err
		}
		primary = notifier.NewEmailNotifier(notifier.SMTPConfig{
			Host:     a.cfg.Email.SMTPHost,
			Port:     a.cfg.Email.SMTPPort,
			Username: a.cfg.Email.Username,
			Password: pw,
			From:     a.cfg.Email.From,
		}, a.logger)
		a.logger.Info("using email notifier", "smtp_host", a.cfg.Email.SMTPHost)
	} else {
		primary = notifier.NewLogNotifier(a.logger)
	}

	if a.cfg.Slack.WebhookURL == "" {
		return primary, nil
	}
	a.logger.Info("mirroring alerts to slack")
	return notifier.Multi{primary, notifier.NewSlackNotifier(a.cfg.Slack.WebhookURL, a.http, retry.DefaultPolicy, a.logger)}, nil
}

// ledger returns the delivery ledger and a close func for its connection.
func (a *app) ledger(ctx context.Context) (alert.Ledger, func() error, error) {
	if a.cfg.Ledger.Backend != config.LedgerRedis {
		return a.store, func() error { return nil }, nil
	}
	rdb, err := ledger.NewRedisClient(ctx, a.cfg.Ledger.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("using redis delivery ledger", "prefix", a.cfg.Ledger.Prefix, "ttl", a.cfg.Ledger.TTL.String())
	return ledger.NewRedisLedger(rdb, a.cfg.Ledger.Prefix, a.cfg.Ledger.TTL), rdb.Close, nil
}

func (a *app) dispatcher(ctx context.Context) (*alert.Dispatcher, func() error, error) {
	n, err := a.notifier()
	if err != nil {
		return nil, nil, err
	}
	l, closeLedger, err := a.ledger(ctx)
	if err != nil {
		return nil, nil, err
	}
	matcher := alert.NewMatcher(a.cfg.Alerts.RelevanceThreshold, a.cfg.Scoring.TargetCountries)
	d := alert.NewDispatcher(a.store, matcher, n, l, a.metrics, a.logger).WithWindow(a.cfg.Alerts.Window)
	return d, closeLedger, nil
}

// components wires all five scheduler tasks against the database.
func (a *app) components(ctx context.Context) (scheduler.Components, func() error, error) {
	det := dedup.NewDetector(a.store, a.logger)
	p, err := a.pipeline(ctx, a.store, det)
	if err != nil {
		return scheduler.Components{}, nil, err
	}
	d, closeLedger, err := a.dispatcher(ctx)
	if err != nil {
		return scheduler.Components{}, nil, err
	}
	return scheduler.Components{
		Pipeline:     p,
		SearchTerms:  a.searchTerms(),
		Location:     a.cfg.Scraping.Location,
		Dispatcher:   d,
		Detector:     det,
		Rescorer:     scoring.NewRescorer(a.store, a.scorer(), a.logger),
		Retention:    a.store,
		RetentionAge: a.cfg.Retention.MaxAge,
		Metrics:      a.metrics,
	}, closeLedger, nil
}

func (a *app) intervals() scheduler.Intervals {
	return scheduler.Intervals{
		Scrape:    a.cfg.Scraping.Interval,
		Notify:    a.cfg.Scheduler.Notify,
		Dedup:     a.cfg.Scheduler.Dedup,
		Rescore:   a.cfg.Scheduler.Rescore,
		Retention: a.cfg.Scheduler.Retention,
	}
}
