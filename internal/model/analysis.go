package model

import "strings"

// Analysis is the structured enrichment result stored alongside a posting.
type Analysis struct {
	RelevanceScore   float64  `json:"relevance_score"`
	IsCorpToCorp     bool     `json:"is_corp_to_corp"`
	KeySkills        []string `json:"key_skills"`
	ExperienceLevel  string   `json:"experience_level"`
	RemoteFriendly   bool     `json:"remote_friendly"`
	UrgencyLevel     string   `json:"urgency_level"`
	SalaryIndication string   `json:"salary_indication"`
	Summary          string   `json:"summary"`
	SalaryMin        *float64 `json:"salary_min,omitempty"`
	SalaryMax        *float64 `json:"salary_max,omitempty"`
	Provider         string   `json:"provider,omitempty"`
}

const (
	LevelJunior = "junior"
	LevelMid    = "mid"
	LevelSenior = "senior"

	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Normalize clamps the score and folds free-form level values onto the closed sets.
func (a *Analysis) Normalize() {
	if a.RelevanceScore < 0 {
		a.RelevanceScore = 0
	}
	if a.RelevanceScore > 1 {
		a.RelevanceScore = 1
	}

	switch strings.ToLower(strings.TrimSpace(a.ExperienceLevel)) {
	case "junior", "entry", "entry-level":
		a.ExperienceLevel = LevelJunior
	case "senior", "lead", "expert", "principal", "staff":
		a.ExperienceLevel = LevelSenior
	default:
		a.ExperienceLevel = LevelMid
	}

	switch strings.ToLower(strings.TrimSpace(a.UrgencyLevel)) {
	case "low":
		a.UrgencyLevel = UrgencyLow
	case "high", "urgent":
		a.UrgencyLevel = UrgencyHigh
	default:
		a.UrgencyLevel = UrgencyMedium
	}

	if a.SalaryMin != nil && *a.SalaryMin <= 0 {
		a.SalaryMin = nil
	}
	if a.SalaryMax != nil && *a.SalaryMax <= 0 {
		a.SalaryMax = nil
	}
}
