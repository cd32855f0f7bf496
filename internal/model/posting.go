package model

import (
	"context"
	"time"
)

// Posting is one job listing after ingestion. Rows are owned by the store once inserted.
type Posting struct {
	ID           int64
	Title        string
	Company      string
	Location     string
	Description  string
	Requirements string
	SalaryMin    *float64 // nil when unknown
	SalaryMax    *float64 // nil when unknown
	JobType      string
	Source       string // collector name
	SourceURL    string
	IsCorpToCorp bool
	PostedDate   *time.Time // when the posting went live, per the collector
	ScrapedDate  time.Time  // set once at insert

	RelevanceScore float64
	Analysis       *Analysis

	IsApplied   bool
	IsFavorited bool

	ContactEmail string
	ContactPhone string
}

// Text returns title, description and requirements joined for keyword scans.
func (p Posting) Text() string {
	return p.Title + " " + p.Description + " " + p.Requirements
}

// RawPosting is what a collector hands to the ingestion pipeline.
type RawPosting struct {
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	Description  string     `json:"description"`
	Requirements string     `json:"requirements,omitempty"`
	JobType      string     `json:"job_type,omitempty"`
	Source       string     `json:"source"`
	SourceURL    string     `json:"source_url"`
	PostedDate   *time.Time `json:"posted_date,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
}

// AlertSubscription is a standing request to be e-mailed about matching postings.
// Once IsActive is false it stays false.
type AlertSubscription struct {
	ID          int64
	Keywords    string // whitespace-separated, OR-matched
	Location    string
	MinSalary   *float64
	Email       string
	IsActive    bool
	CreatedDate time.Time
}

// PostingQuery filters Search results. Zero values mean "no filter".
type PostingQuery struct {
	Keywords          string
	Location          string
	MinSalary         *float64
	MaxSalary         *float64
	JobType           string
	Source            string
	IsCorpToCorp      *bool
	MinRelevance      float64
	PostedWithinHours int
	Limit             int // capped at MaxQueryLimit
}

// MaxQueryLimit caps the number of rows a single Search may return.
const MaxQueryLimit = 100

// PostingUpdate carries the user-state fields that may be changed after insert.
type PostingUpdate struct {
	IsApplied   *bool
	IsFavorited *bool
}

// Stats summarizes the persisted postings.
type Stats struct {
	Total        int
	CorpToCorp   int
	Last24h      int
	AvgRelevance float64
	TopCompanies []Count
	TopLocations []Count
}

// Count is a label with its number of postings.
type Count struct {
	Label string
	N     int
}

// Collector gathers raw postings from one source for a keyword/location search.
// A bad record must be skipped rather than failing the whole call.
type Collector interface {
	Name() string
	Collect(ctx context.Context, keywords, location string) ([]RawPosting, error)
}

// AnalysisInput is the text handed to an Analyzer.
type AnalysisInput struct {
	Title        string
	Description  string
	Requirements string
}

// Analyzer produces a structured Analysis for one posting.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (Analysis, error)
}

// Delivery is one (posting, subscriber) notification.
type Delivery struct {
	Posting  Posting
	Email    string
	Keywords string
}

// Notifier sends a single notification. A non-nil error means it was not delivered.
type Notifier interface {
	Deliver(ctx context.Context, d Delivery) error
}
