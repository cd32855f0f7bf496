// Package store persists postings, alert subscriptions and the alert delivery
// ledger in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/amishk599/c2cradar/internal/model"
)

// schema is applied on every open; all statements are idempotent.
// Times are unix milliseconds so range filters stay plain integer compares.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS postings (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		title           TEXT    NOT NULL,
		company         TEXT    NOT NULL,
		location        TEXT    NOT NULL DEFAULT '',
		description     TEXT    NOT NULL DEFAULT '',
		requirements    TEXT    NOT NULL DEFAULT '',
		salary_min      REAL,
		salary_max      REAL,
		job_type        TEXT    NOT NULL DEFAULT '',
		source          TEXT    NOT NULL DEFAULT '',
		source_url      TEXT    NOT NULL DEFAULT '',
		is_corp_to_corp INTEGER NOT NULL DEFAULT 0,
		posted_date     INTEGER,
		scraped_date    INTEGER NOT NULL,
		relevance_score REAL    NOT NULL DEFAULT 0,
		analysis        TEXT,
		is_applied      INTEGER NOT NULL DEFAULT 0,
		is_favorited    INTEGER NOT NULL DEFAULT 0,
		contact_email   TEXT    NOT NULL DEFAULT '',
		contact_phone   TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS postings_exact_key
		ON postings (title, company, location, source_url)`,
	`DROP INDEX IF EXISTS postings_company_scraped`,
	`CREATE INDEX IF NOT EXISTS postings_company_posted ON postings (company, posted_date)`,
	`CREATE INDEX IF NOT EXISTS postings_posted ON postings (posted_date)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		keywords     TEXT    NOT NULL,
		location     TEXT    NOT NULL DEFAULT '',
		min_salary   REAL,
		email        TEXT    NOT NULL,
		is_active    INTEGER NOT NULL DEFAULT 1,
		created_date INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_deliveries (
		alert_id     INTEGER NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
		posting_id   INTEGER NOT NULL REFERENCES postings(id) ON DELETE CASCADE,
		delivered_at INTEGER NOT NULL,
		PRIMARY KEY (alert_id, posting_id)
	)`,
}

// SQLiteStore implements every persistence interface of the pipeline, the
// sweeps and the alert dispatcher.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and applies
// the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; the busy timeout covers the CLI and daemon sharing a file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already-open database without touching the schema.
func NewWithDB(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// WithClock replaces the clock used for scraped_date and Stats. Used in tests.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// affectedOne maps a zero-row update or delete to model.ErrNotFound.
func affectedOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}
