package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Hours in a full-time working year, used to annualize hourly rates.
const hoursPerYear = 40 * 52

const amount = `(\d+(?:,\d{3})*(?:\.\d+)?)`

var (
	hourlyRangeRe = regexp.MustCompile(`(?i)\$` + amount + `\s*-\s*\$?` + amount + `\s*(?:per|/|an?)\s*(?:hour|hr)\b`)
	dollarRangeRe = regexp.MustCompile(`(?i)\$` + amount + `\s*-\s*\$` + amount)
	kRangeRe      = regexp.MustCompile(`(?i)\$?` + amount + `\s*k?\s*-\s*\$?` + amount + `\s*(?:k|thousand)\b`)
	hourlyRe      = regexp.MustCompile(`(?i)\$` + amount + `\s*(?:per|/|an?)\s*(?:hour|hr)\b`)
)

// ExtractSalary finds an annual salary range in free text. It understands
// "$X - $Y", "X - Y k" / "X - Y thousand" and "$X per hour" (annualized at
// 40h x 52wk); the first form that matches wins. Both results are nil when
// nothing matches.
func ExtractSalary(text string) (lo, hi *float64) {
	if m := hourlyRangeRe.FindStringSubmatch(text); m != nil {
		return pair(m[1], m[2], hoursPerYear)
	}
	if m := dollarRangeRe.FindStringSubmatch(text); m != nil {
		return pair(m[1], m[2], 1)
	}
	if m := kRangeRe.FindStringSubmatch(text); m != nil {
		return pair(m[1], m[2], 1000)
	}
	if m := hourlyRe.FindStringSubmatch(text); m != nil {
		return pair(m[1], m[1], hoursPerYear)
	}
	return nil, nil
}

func pair(lo, hi string, factor float64) (*float64, *float64) {
	a, errA := parseAmount(lo)
	b, errB := parseAmount(hi)
	if errA != nil || errB != nil {
		return nil, nil
	}
	a *= factor
	b *= factor
	return &a, &b
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
