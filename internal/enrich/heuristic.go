package enrich

import (
	"context"
	"fmt"
	"math"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/textmatch"
)

// Ensure Heuristic implements model.Analyzer.
var _ model.Analyzer = (*Heuristic)(nil)

// DefaultCorpToCorpKeywords mark a posting as corp-to-corp in the heuristic.
var DefaultCorpToCorpKeywords = []string{
	"corp to corp", "c2c", "contract", "contractor", "consulting",
	"1099", "w2", "independent contractor",
}

var (
	techKeywords = []string{
		"python", "java", "javascript", "react", "nodejs", "sql", "aws", "azure",
		"docker", "kubernetes", "machine learning", "data science", "api", "rest",
		"microservices", "cloud", "devops", "ci/cd", "agile", "scrum",
	}
	seniorTerms  = []string{"senior", "lead", "principal", "architect"}
	juniorTerms  = []string{"junior", "entry", "graduate"}
	remoteTerms  = []string{"remote", "work from home", "wfh", "telecommute", "distributed"}
	urgencyTerms = []string{"urgent", "asap", "immediate", "quickly", "fast"}
)

const (
	heuristicSkillCap = 5
	techDensityDenom  = 10.0
	corpToCorpBonus   = 0.3
)

// Heuristic is the deterministic keyword analyzer used without an LLM or when
// the LLM fails. It never returns an error.
type Heuristic struct {
	c2c     *textmatch.KeywordSet
	tech    *textmatch.KeywordSet
	senior  *textmatch.KeywordSet
	junior  *textmatch.KeywordSet
	remote  *textmatch.KeywordSet
	urgency *textmatch.KeywordSet
}

// NewHeuristic builds a Heuristic. An empty c2cKeywords uses DefaultCorpToCorpKeywords.
func NewHeuristic(c2cKeywords []string) *Heuristic {
	if len(c2cKeywords) == 0 {
		c2cKeywords = DefaultCorpToCorpKeywords
	}
	return &Heuristic{
		c2c:     textmatch.NewKeywordSet(c2cKeywords),
		tech:    textmatch.NewKeywordSet(techKeywords),
		senior:  textmatch.NewKeywordSet(seniorTerms),
		junior:  textmatch.NewKeywordSet(juniorTerms),
		remote:  textmatch.NewKeywordSet(remoteTerms),
		urgency: textmatch.NewKeywordSet(urgencyTerms),
	}
}

// Analyze scores tech-keyword density, corp-to-corp terms and level, remote
// and urgency cues in title, description and requirements.
func (h *Heuristic) Analyze(_ context.Context, in model.AnalysisInput) (model.Analysis, error) {
	text := in.Title + " " + in.Description + " " + in.Requirements

	isC2C := h.c2c.Any(text)
	skills := h.tech.Found(text)

	score := math.Min(1, float64(len(skills))/techDensityDenom)
	if isC2C {
		score = math.Min(1, score+corpToCorpBonus)
	}

	level := model.LevelMid
	switch {
	case h.senior.Any(text):
		level = model.LevelSenior
	case h.junior.Any(text):
		level = model.LevelJunior
	}

	urgency := model.UrgencyMedium
	if h.urgency.Any(text) {
		urgency = model.UrgencyHigh
	}

	remote := h.remote.Any(text)
	where := "Location-based role."
	if remote {
		where = "Remote work mentioned."
	}

	if len(skills) > heuristicSkillCap {
		skills = skills[:heuristicSkillCap]
	}

	return model.Analysis{
		RelevanceScore:   score,
		IsCorpToCorp:     isC2C,
		KeySkills:        skills,
		ExperienceLevel:  level,
		RemoteFriendly:   remote,
		UrgencyLevel:     urgency,
		SalaryIndication: "Not specified",
		Summary:          fmt.Sprintf("This is a %s level position for %s. %s", level, in.Title, where),
		Provider:         "heuristic",
	}, nil
}
