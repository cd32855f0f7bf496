// Package alert matches scored postings against alert subscriptions and
// dispatches the resulting notifications.
package alert

import (
	"strings"

	"github.com/amishk599/c2cradar/internal/geo"
	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/textmatch"
)

// DefaultThreshold is the minimum relevance score a posting needs to be alerted on.
const DefaultThreshold = 0.7

// Match is one (posting, subscription) pair that should be notified.
type Match struct {
	Posting      model.Posting
	Subscription model.AlertSubscription
}

// Matcher applies keyword, location, salary and relevance filters.
// Keywords are OR-matched: any token of the subscription is enough.
type Matcher struct {
	threshold float64
	countries []string
}

// NewMatcher returns a Matcher. countries are the configured target countries;
// a subscription whose location names one of them also accepts postings in
// recognized US places and remote postings.
func NewMatcher(threshold float64, countries []string) *Matcher {
	return &Matcher{threshold: threshold, countries: countries}
}

// Match returns every pair where an active subscription accepts a posting,
// in subscription order then posting order.
func (m *Matcher) Match(postings []model.Posting, subs []model.AlertSubscription) []Match {
	var out []Match
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		kws := textmatch.NewKeywordSet(strings.Fields(sub.Keywords))
		for _, p := range postings {
			if m.accepts(p, sub, kws) {
				out = append(out, Match{Posting: p, Subscription: sub})
			}
		}
	}
	return out
}

// Matches reports whether a single subscription accepts a single posting.
func (m *Matcher) Matches(p model.Posting, sub model.AlertSubscription) bool {
	if !sub.IsActive {
		return false
	}
	return m.accepts(p, sub, textmatch.NewKeywordSet(strings.Fields(sub.Keywords)))
}

func (m *Matcher) accepts(p model.Posting, sub model.AlertSubscription, kws *textmatch.KeywordSet) bool {
	if !kws.Any(p.Text()) {
		return false
	}
	if sub.Location != "" && !m.locationMatches(p.Location, sub.Location) {
		return false
	}
	if sub.MinSalary != nil && p.SalaryMin != nil && *p.SalaryMin < *sub.MinSalary {
		return false
	}
	return p.RelevanceScore >= m.threshold
}

func (m *Matcher) locationMatches(postingLoc, want string) bool {
	if strings.Contains(strings.ToLower(postingLoc), strings.ToLower(strings.TrimSpace(want))) {
		return true
	}
	if !m.isTargetCountry(want) {
		return false
	}
	return geo.IsUSPlace(postingLoc) || geo.IsRemote(postingLoc) || geo.MentionsCountry(postingLoc, m.countries)
}

func (m *Matcher) isTargetCountry(loc string) bool {
	loc = strings.TrimSpace(loc)
	for _, c := range m.countries {
		if strings.EqualFold(loc, strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}
