// Package scoring ranks postings for corp-to-corp contract seekers.
package scoring

import (
	"log/slog"
	"math"
	"time"

	"github.com/amishk599/c2cradar/internal/geo"
	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/textmatch"
)

// Weights of the five sub-scores. They sum to 1.
const (
	WeightSkill    = 0.40
	WeightContract = 0.25
	WeightLocation = 0.15
	WeightRecency  = 0.10
	WeightSalary   = 0.10
)

// TechSkills is the full technology vocabulary, most common first.
var TechSkills = []string{
	"python", "java", "javascript", "react", "angular", "vue", "nodejs",
	"sql", "mongodb", "postgresql", "mysql", "redis", "elasticsearch",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"git", "jenkins", "ci/cd", "microservices", "api", "rest", "graphql",
	"machine learning", "ai", "data science", "analytics", "big data",
	"agile", "scrum", "devops", "cloud", "cybersecurity",
}

// DefaultSkills is used when no skill set is configured or passed in.
var DefaultSkills = TechSkills[:10]

// DefaultContractTerms signal contract work in a title or description.
var DefaultContractTerms = []string{
	"contract", "contractor", "consulting", "freelance", "temporary",
	"corp to corp", "c2c", "1099", "w2", "independent contractor",
}

// DefaultTargetCountries are the countries whose mention earns full location credit.
var DefaultTargetCountries = []string{"USA", "United States"}

// Breakdown holds the individual sub-scores of one posting.
type Breakdown struct {
	SkillMatch float64
	Contract   float64
	Location   float64
	Recency    float64
	Salary     float64
}

// Total is the weighted sum, capped at 1.
func (b Breakdown) Total() float64 {
	sum := WeightSkill*b.SkillMatch +
		WeightContract*b.Contract +
		WeightLocation*b.Location +
		WeightRecency*b.Recency +
		WeightSalary*b.Salary
	return math.Min(1, sum)
}

func (b Breakdown) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("skill_match", b.SkillMatch),
		slog.Float64("contract_type", b.Contract),
		slog.Float64("location_preference", b.Location),
		slog.Float64("recency", b.Recency),
		slog.Float64("salary_range", b.Salary),
	)
}

// Scorer computes relevance scores. It is safe for concurrent use.
type Scorer struct {
	skills    *textmatch.KeywordSet
	contract  *textmatch.KeywordSet
	countries []string
	now       func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithSkills replaces the default skill set.
func WithSkills(skills []string) Option {
	return func(s *Scorer) {
		if len(skills) > 0 {
			s.skills = textmatch.NewKeywordSet(skills)
		}
	}
}

// WithContractTerms replaces the contract keyword list.
func WithContractTerms(terms []string) Option {
	return func(s *Scorer) {
		if len(terms) > 0 {
			s.contract = textmatch.NewKeywordSet(terms)
		}
	}
}

// WithTargetCountries sets the countries treated like "remote" for location credit.
func WithTargetCountries(countries []string) Option {
	return func(s *Scorer) {
		if len(countries) > 0 {
			s.countries = countries
		}
	}
}

// WithClock replaces the clock used for recency.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer returns a Scorer with the default vocabularies.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		skills:    textmatch.NewKeywordSet(DefaultSkills),
		contract:  textmatch.NewKeywordSet(DefaultContractTerms),
		countries: DefaultTargetCountries,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score returns the relevance of p in [0,1]. A nil or empty skills slice
// falls back to the scorer's configured skill set.
func (s *Scorer) Score(p model.Posting, skills []string) float64 {
	return s.Breakdown(p, skills).Total()
}

// Breakdown returns the five sub-scores for p.
func (s *Scorer) Breakdown(p model.Posting, skills []string) Breakdown {
	set := s.skills
	if len(skills) > 0 {
		set = textmatch.NewKeywordSet(skills)
	}
	return Breakdown{
		SkillMatch: skillMatch(p, set),
		Contract:   s.contractType(p),
		Location:   s.location(p.Location),
		Recency:    s.recency(p.PostedDate),
		Salary:     salary(p.SalaryMin),
	}
}

func skillMatch(p model.Posting, set *textmatch.KeywordSet) float64 {
	if set.Len() == 0 {
		return 0
	}
	return float64(set.Count(p.Text())) / float64(set.Len())
}

func (s *Scorer) contractType(p model.Posting) float64 {
	if p.IsCorpToCorp {
		return 1
	}
	hits := s.contract.Count(p.Title + " " + p.Description)
	return math.Min(1, float64(hits)/3)
}

func (s *Scorer) location(loc string) float64 {
	switch {
	case geo.IsRemote(loc), geo.MentionsCountry(loc, s.countries):
		return 1
	case geo.IsUSPlace(loc):
		return 0.8
	default:
		return 0.5
	}
}

func (s *Scorer) recency(posted *time.Time) float64 {
	if posted == nil {
		return 0.5
	}
	days := int(s.now().Sub(*posted) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	switch {
	case days == 0:
		return 1
	case days <= 3:
		return 0.8
	case days <= 7:
		return 0.6
	case days <= 14:
		return 0.4
	default:
		return 0.2
	}
}

func salary(salaryMin *float64) float64 {
	if salaryMin == nil || *salaryMin <= 0 {
		return 0.5
	}
	switch v := *salaryMin; {
	case v >= 100_000:
		return 1
	case v >= 80_000:
		return 0.8
	case v >= 60_000:
		return 0.6
	default:
		return 0.4
	}
}
