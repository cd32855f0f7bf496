// Package geo recognizes US and remote locations in free-text location strings.
package geo

import (
	"strings"
	"unicode"
)

var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true,
	"DE": true, "DC": true, "FL": true, "GA": true, "HI": true, "ID": true, "IL": true,
	"IN": true, "IA": true, "KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true,
	"NV": true, "NH": true, "NJ": true, "NM": true, "NY": true, "NC": true, "ND": true,
	"OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true, "SD": true,
	"TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
}

// Full state names and large metro areas, matched as whole words.
var places = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado", "connecticut",
	"delaware", "florida", "georgia", "hawaii", "idaho", "illinois", "indiana", "iowa",
	"kansas", "kentucky", "louisiana", "maine", "maryland", "massachusetts", "michigan",
	"minnesota", "mississippi", "missouri", "montana", "nebraska", "nevada",
	"new hampshire", "new jersey", "new mexico", "new york", "north carolina",
	"north dakota", "ohio", "oklahoma", "oregon", "pennsylvania", "rhode island",
	"south carolina", "south dakota", "tennessee", "texas", "utah", "vermont", "virginia",
	"washington", "west virginia", "wisconsin", "wyoming",
	"san francisco", "los angeles", "san diego", "san jose", "seattle", "chicago",
	"boston", "austin", "dallas", "houston", "atlanta", "denver", "phoenix", "miami",
	"philadelphia", "charlotte", "detroit", "minneapolis", "portland", "raleigh",
	"nyc", "bay area", "silicon valley",
}

var remoteTerms = []string{"remote", "anywhere", "work from home", "wfh", "telecommute", "distributed"}

// IsRemote reports whether the location advertises remote work.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	for _, t := range remoteTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// MentionsCountry reports whether location contains any of countries, case-insensitively.
func MentionsCountry(location string, countries []string) bool {
	lower := strings.ToLower(location)
	for _, c := range countries {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// IsUSPlace reports whether location names a US state (code or name) or a major US city.
// State codes only count as a comma-separated part ("Austin, TX"), so words like
// "in" or "or" inside prose do not match.
func IsUSPlace(location string) bool {
	for _, part := range strings.Split(location, ",") {
		part = strings.TrimSpace(part)
		if len(part) == 2 && stateCodes[strings.ToUpper(part)] {
			return true
		}
		// "CA 94105"
		if fields := strings.Fields(part); len(fields) == 2 && stateCodes[strings.ToUpper(fields[0])] && isDigits(fields[1]) {
			return true
		}
	}

	words := " " + strings.Join(strings.FieldsFunc(strings.ToLower(location), func(r rune) bool {
		return !unicode.IsLetter(r)
	}), " ") + " "
	for _, p := range places {
		if strings.Contains(words, " "+p+" ") {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
