package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "C2CRADAR_CONFIG"

// DefaultPath is used when neither --config nor C2CRADAR_CONFIG is set.
const DefaultPath = "config.yaml"

// Config is the root configuration for c2cradar.
type Config struct {
	Database   DatabaseConfig
	Scraping   ScrapingConfig
	Collectors []CollectorConfig
	Scoring    ScoringConfig
	Alerts     AlertsConfig
	Scheduler  SchedulerConfig
	Retention  RetentionConfig
	Email      EmailConfig
	Slack      SlackConfig
	AI         AIConfig
	Ledger     LedgerConfig
	Ops        OpsConfig

	// CorpToCorpKeywords mark a posting as C2C when no AI provider is used.
	CorpToCorpKeywords []string
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScrapingConfig drives the scrape task.
type ScrapingConfig struct {
	Interval    time.Duration
	SearchTerms []string
	Location    string
	Concurrency int
	MinDelay    time.Duration // minimum gap between requests to the same source
	MaxRetries  int
	RetryDelay  time.Duration
}

// Collector types.
const (
	CollectorGreenhouse = "greenhouse"
	CollectorLever      = "lever"
	CollectorAshby      = "ashby"
	CollectorGem        = "gem"
	CollectorWorkday    = "workday"
	CollectorFile       = "file"
)

// CollectorConfig describes one posting source.
type CollectorConfig struct {
	Type       string `yaml:"type"`
	Name       string `yaml:"name"`        // company name shown on postings
	BoardToken string `yaml:"board_token"` // greenhouse, ashby, gem
	Slug       string `yaml:"slug"`        // lever
	URL        string `yaml:"url"`         // workday cxs site URL
	Path       string `yaml:"path"`        // file
	Enabled    bool   `yaml:"enabled"`
}

// ScoringConfig tunes the relevance scorer.
type ScoringConfig struct {
	Skills          []string `yaml:"skills"`
	ContractTerms   []string `yaml:"contract_terms"`
	TargetCountries []string `yaml:"target_countries"`
}

// AlertsConfig controls the notify task.
type AlertsConfig struct {
	RelevanceThreshold float64
	Window             time.Duration // how far back a notify pass looks
}

// SchedulerConfig holds the intervals of the non-scrape tasks.
type SchedulerConfig struct {
	Notify     time.Duration
	Dedup      time.Duration
	Rescore    time.Duration
	Retention  time.Duration
	RunOnStart []string
}

// RetentionConfig controls the cleanup task.
type RetentionConfig struct {
	MaxAge time.Duration
}

// EmailConfig controls SMTP delivery. Without it alerts are only logged.
type EmailConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	From           string `yaml:"from"`
	KeyringAccount string `yaml:"keyring_account"` // password is read from the OS keyring when set
}

// SlackConfig mirrors alerts into a Slack channel when a webhook is set.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// AI providers.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// AIConfig selects the enrichment provider. "none" uses the keyword heuristic.
type AIConfig struct {
	Provider string
	BaseURL  string // openai only; defaults to https://api.openai.com/v1
	Model    string
	APIKey   string // expanded from env var by Load
	Timeout  time.Duration
}

// Ledger backends.
const (
	LedgerSQLite = "sqlite"
	LedgerRedis  = "redis"
)

// LedgerConfig selects where alert deliveries are remembered.
type LedgerConfig struct {
	Backend  string
	RedisURL string
	Prefix   string
	TTL      time.Duration
}

// OpsConfig enables the /metrics and /status listener when Addr is set.
type OpsConfig struct {
	Addr string `yaml:"addr"`
}

const (
	defaultDatabasePath = "c2cradar.db"
	defaultLocation     = "USA"
	defaultConcurrency  = 4
	defaultThreshold    = 0.7
	defaultSMTPHost     = "smtp.gmail.com"
	defaultSMTPPort     = 587
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultRedisPrefix  = "c2cradar:"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database           DatabaseConfig     `yaml:"database"`
	Scraping           rawScrapingConfig  `yaml:"scraping"`
	Collectors         []CollectorConfig  `yaml:"collectors"`
	Scoring            ScoringConfig      `yaml:"scoring"`
	Alerts             rawAlertsConfig    `yaml:"alerts"`
	Scheduler          rawSchedulerConfig `yaml:"scheduler"`
	Retention          rawRetentionConfig `yaml:"retention"`
	Email              EmailConfig        `yaml:"email"`
	Slack              SlackConfig        `yaml:"slack"`
	AI                 rawAIConfig        `yaml:"ai"`
	Ledger             rawLedgerConfig    `yaml:"ledger"`
	Ops                OpsConfig          `yaml:"ops"`
	CorpToCorpKeywords []string           `yaml:"c2c_keywords"`
}

type rawScrapingConfig struct {
	Interval    string   `yaml:"interval"`
	SearchTerms []string `yaml:"search_terms"`
	Location    string   `yaml:"location"`
	Concurrency int      `yaml:"concurrency"`
	MinDelay    string   `yaml:"min_delay"`
	MaxRetries  *int     `yaml:"max_retries"`
	RetryDelay  string   `yaml:"retry_delay"`
}

type rawAlertsConfig struct {
	RelevanceThreshold *float64 `yaml:"relevance_threshold"`
	Window             string   `yaml:"window"`
}

type rawSchedulerConfig struct {
	Notify     string   `yaml:"check_notifications"`
	Dedup      string   `yaml:"remove_duplicates"`
	Rescore    string   `yaml:"update_scores"`
	Retention  string   `yaml:"cleanup_old_jobs"`
	RunOnStart []string `yaml:"run_on_start"`
}

type rawRetentionConfig struct {
	MaxAge string `yaml:"max_age"`
}

type rawAIConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"`
}

type rawLedgerConfig struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
	TTL      string `yaml:"ttl"`
}

// ResolvePath picks the config file: the flag value, then C2CRADAR_CONFIG, then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// LoadDotEnv loads .env.local and then .env from the working directory.
// Variables already in the environment win, and missing files are ignored.
func LoadDotEnv() error {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func build(raw rawConfig) (*Config, error) {
	d := durations{}
	cfg := &Config{
		Database:   raw.Database,
		Collectors: raw.Collectors,
		Scoring:    raw.Scoring,
		Email:      raw.Email,
		Slack:      raw.Slack,
		Ops:        raw.Ops,

		CorpToCorpKeywords: raw.CorpToCorpKeywords,
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath
	}

	cfg.Scraping = ScrapingConfig{
		Interval:    d.parse("scraping.interval", raw.Scraping.Interval, time.Hour),
		SearchTerms: raw.Scraping.SearchTerms,
		Location:    raw.Scraping.Location,
		Concurrency: raw.Scraping.Concurrency,
		MinDelay:    d.parse("scraping.min_delay", raw.Scraping.MinDelay, 2*time.Second),
		MaxRetries:  2,
		RetryDelay:  d.parse("scraping.retry_delay", raw.Scraping.RetryDelay, 5*time.Second),
	}
	if raw.Scraping.MaxRetries != nil {
		cfg.Scraping.MaxRetries = *raw.Scraping.MaxRetries
	}
	if cfg.Scraping.Location == "" {
		cfg.Scraping.Location = defaultLocation
	}
	if cfg.Scraping.Concurrency == 0 {
		cfg.Scraping.Concurrency = defaultConcurrency
	}

	cfg.Alerts = AlertsConfig{
		RelevanceThreshold: defaultThreshold,
		Window:             d.parse("alerts.window", raw.Alerts.Window, 24*time.Hour),
	}
	if raw.Alerts.RelevanceThreshold != nil {
		cfg.Alerts.RelevanceThreshold = *raw.Alerts.RelevanceThreshold
	}
	if len(cfg.Scoring.TargetCountries) == 0 {
		cfg.Scoring.TargetCountries = []string{"USA", "United States"}
	}

	cfg.Scheduler = SchedulerConfig{
		Notify:     d.parse("scheduler.check_notifications", raw.Scheduler.Notify, time.Hour),
		Dedup:      d.parse("scheduler.remove_duplicates", raw.Scheduler.Dedup, 6*time.Hour),
		Rescore:    d.parse("scheduler.update_scores", raw.Scheduler.Rescore, 12*time.Hour),
		Retention:  d.parse("scheduler.cleanup_old_jobs", raw.Scheduler.Retention, 24*time.Hour),
		RunOnStart: raw.Scheduler.RunOnStart,
	}
	cfg.Retention.MaxAge = d.parse("retention.max_age", raw.Retention.MaxAge, 30*24*time.Hour)

	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = defaultSMTPHost
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaultSMTPPort
	}
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.Username
	}

	cfg.AI = AIConfig{
		Provider: strings.ToLower(raw.AI.Provider),
		BaseURL:  raw.AI.BaseURL,
		Model:    raw.AI.Model,
		APIKey:   raw.AI.APIKey,
		Timeout:  d.parse("ai.timeout", raw.AI.Timeout, 30*time.Second),
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderNone
	}
	if cfg.AI.Provider == ProviderOpenAI && cfg.AI.Model == "" {
		cfg.AI.Model = defaultOpenAIModel
	}

	cfg.Ledger = LedgerConfig{
		Backend:  strings.ToLower(raw.Ledger.Backend),
		RedisURL: raw.Ledger.RedisURL,
		Prefix:   raw.Ledger.Prefix,
		TTL:      d.parse("ledger.ttl", raw.Ledger.TTL, 48*time.Hour),
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = LedgerSQLite
	}
	if cfg.Ledger.Prefix == "" {
		cfg.Ledger.Prefix = defaultRedisPrefix
	}

	if d.err != nil {
		return nil, d.err
	}
	return cfg, nil
}

// durations parses optional duration fields, keeping the first error.
type durations struct {
	err error
}

func (d *durations) parse(field, s string, def time.Duration) time.Duration {
	if s == "" || d.err != nil {
		return def
	}
	v, err := ParseDuration(s)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, s, err)
		return def
	}
	return v
}

// ParseDuration extends time.ParseDuration with a whole-day suffix, e.g. "30d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", days)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func validate(cfg *Config) error {
	for field, v := range map[string]time.Duration{
		"scraping.interval":             cfg.Scraping.Interval,
		"scheduler.check_notifications": cfg.Scheduler.Notify,
		"scheduler.remove_duplicates":   cfg.Scheduler.Dedup,
		"scheduler.update_scores":       cfg.Scheduler.Rescore,
		"scheduler.cleanup_old_jobs":    cfg.Scheduler.Retention,
		"retention.max_age":             cfg.Retention.MaxAge,
		"alerts.window":                 cfg.Alerts.Window,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", field, v)
		}
	}
	if cfg.Scraping.Concurrency < 1 {
		return fmt.Errorf("scraping.concurrency must be at least 1, got %d", cfg.Scraping.Concurrency)
	}
	if cfg.Scraping.MinDelay < 0 || cfg.Scraping.MaxRetries < 0 {
		return fmt.Errorf("scraping.min_delay and scraping.max_retries must not be negative")
	}
	if t := cfg.Alerts.RelevanceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("alerts.relevance_threshold must be between 0 and 1, got %v", t)
	}

	enabled := 0
	for i, c := range cfg.Collectors {
		if !c.Enabled {
			continue
		}
		enabled++
		switch c.Type {
		case CollectorGreenhouse, CollectorAshby, CollectorGem:
			if c.BoardToken == "" {
				return fmt.Errorf("collectors[%d]: board_token is required for %s", i, c.Type)
			}
		case CollectorWorkday:
			if !strings.HasPrefix(c.URL, "https://") || c.Name == "" {
				return fmt.Errorf("collectors[%d]: workday needs an https url and a name", i)
			}
		case CollectorLever:
			if c.Slug == "" {
				return fmt.Errorf("collectors[%d]: slug is required for lever", i)
			}
		case CollectorFile:
			if c.Path == "" {
				return fmt.Errorf("collectors[%d]: path is required for file", i)
			}
		default:
			return fmt.Errorf("collectors[%d]: unknown type %q", i, c.Type)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one collector must be enabled")
	}

	if cfg.Email.Enabled {
		if cfg.Email.From == "" {
			return fmt.Errorf("email.from (or email.username) is required when email.enabled is true")
		}
		if cfg.Email.Password == "" && cfg.Email.KeyringAccount == "" {
			return fmt.Errorf("email.password or email.keyring_account is required when email.enabled is true")
		}
	}

	if url := cfg.Slack.WebhookURL; url != "" && !strings.HasPrefix(url, "https://hooks.slack.com/") {
		return fmt.Errorf("slack.webhook_url must start with https://hooks.slack.com/")
	}

	switch cfg.AI.Provider {
	case ProviderNone:
	case ProviderOpenAI, ProviderGemini:
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required for provider %q", cfg.AI.Provider)
		}
	default:
		return fmt.Errorf("ai.provider must be none, openai or gemini, got %q", cfg.AI.Provider)
	}

	switch cfg.Ledger.Backend {
	case LedgerSQLite:
	case LedgerRedis:
		if cfg.Ledger.RedisURL == "" {
			return fmt.Errorf("ledger.redis_url is required when ledger.backend is redis")
		}
	default:
		return fmt.Errorf("ledger.backend must be sqlite or redis, got %q", cfg.Ledger.Backend)
	}

	return nil
}
