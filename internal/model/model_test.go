package model

import (
	"errors"
	"fmt"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestAnalysisNormalize(t *testing.T) {
	tests := []struct {
		name      string
		in        Analysis
		wantScore float64
		wantLevel string
		wantUrg   string
	}{
		{"clamps high score", Analysis{RelevanceScore: 1.7}, 1, LevelMid, UrgencyMedium},
		{"clamps negative score", Analysis{RelevanceScore: -0.2}, 0, LevelMid, UrgencyMedium},
		{"folds lead to senior", Analysis{RelevanceScore: 0.5, ExperienceLevel: " Lead "}, 0.5, LevelSenior, UrgencyMedium},
		{"folds entry to junior", Analysis{ExperienceLevel: "entry-level", UrgencyLevel: "URGENT"}, 0, LevelJunior, UrgencyHigh},
		{"keeps low urgency", Analysis{UrgencyLevel: "low"}, 0, LevelMid, UrgencyLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.in
			a.Normalize()
			if a.RelevanceScore != tt.wantScore || a.ExperienceLevel != tt.wantLevel || a.UrgencyLevel != tt.wantUrg {
				t.Errorf("got %v/%s/%s, want %v/%s/%s", a.RelevanceScore, a.ExperienceLevel, a.UrgencyLevel,
					tt.wantScore, tt.wantLevel, tt.wantUrg)
			}
		})
	}
}

func TestAnalysisNormalize_DropsNonPositiveSalary(t *testing.T) {
	a := Analysis{SalaryMin: f(0), SalaryMax: f(-5)}
	a.Normalize()
	if a.SalaryMin != nil || a.SalaryMax != nil {
		t.Errorf("salary = %v/%v, want nil/nil", a.SalaryMin, a.SalaryMax)
	}

	a = Analysis{SalaryMin: f(90000)}
	a.Normalize()
	if a.SalaryMin == nil || *a.SalaryMin != 90000 {
		t.Errorf("positive salary dropped")
	}
}

func TestFormatSalary(t *testing.T) {
	tests := []struct {
		lo, hi *float64
		want   string
	}{
		{nil, nil, "Not specified"},
		{f(95000), nil, "From $95,000"},
		{nil, f(1200), "Up to $1,200"},
		{f(100), f(1000000), "$100 - $1,000,000"},
	}
	for _, tt := range tests {
		if got := FormatSalary(tt.lo, tt.hi); got != tt.want {
			t.Errorf("FormatSalary = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("boom")
	for _, err := range []error{
		&CollectorError{Source: "lever:acme", Err: base},
		&EnrichmentError{Title: "Go Dev", Err: base},
		&PersistenceError{Op: "insert", Key: "Go Dev", Err: base},
		&DeliveryError{Email: "a@b.c", PostingID: 3, Err: base},
		&HTTPError{StatusCode: 503, Err: base},
	} {
		wrapped := fmt.Errorf("task: %w", err)
		if !errors.Is(wrapped, base) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}

	var he *HTTPError
	if !errors.As(fmt.Errorf("x: %w", &HTTPError{StatusCode: 429}), &he) || he.StatusCode != 429 {
		t.Error("errors.As failed for HTTPError")
	}
	if got := (&HTTPError{StatusCode: 500}).Error(); got != "HTTP 500" {
		t.Errorf("Error() = %q", got)
	}
}
