package model

import (
	"fmt"
	"strings"
)

// FormatSalary renders a salary range for people, e.g. "$95,000 - $120,000".
func FormatSalary(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("$%s - $%s", thousands(*lo), thousands(*hi))
	case lo != nil:
		return "From $" + thousands(*lo)
	case hi != nil:
		return "Up to $" + thousands(*hi)
	}
	return "Not specified"
}

// thousands renders 120000 as "120,000".
func thousands(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
