// Package collector fetches raw postings from public job boards and files.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/c2cradar/internal/geo"
	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/textmatch"
)

// minTermLen drops short filler words ("to", "of") from search terms.
const minTermLen = 3

// query narrows a board's postings to one search term and location.
type query struct {
	terms    *textmatch.KeywordSet
	location string
}

func newQuery(keywords, location string) query {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(keywords)) {
		if len(w) >= minTermLen {
			terms = append(terms, w)
		}
	}
	return query{
		terms:    textmatch.NewKeywordSet(terms),
		location: strings.ToLower(strings.TrimSpace(location)),
	}
}

// matches reports whether a posting with the given text and location is
// wanted. Any term is enough; an empty query accepts everything.
func (q query) matches(text, location string) bool {
	if q.terms.Len() > 0 && !q.terms.Any(text) {
		return false
	}
	return q.locationMatches(location)
}

func (q query) locationMatches(location string) bool {
	if q.location == "" {
		return true
	}
	if strings.Contains(strings.ToLower(location), q.location) || geo.IsRemote(location) {
		return true
	}
	switch q.location {
	case "us", "usa", "united states":
		return geo.IsUSPlace(location)
	}
	return false
}

// htmlText flattens an HTML or HTML-escaped fragment to plain text. Greenhouse
// double-encodes content, so entities are unescaped before parsing.
func htmlText(content string) string {
	if content == "" {
		return ""
	}
	unescaped := html.UnescapeString(content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		return strings.Join(strings.Fields(unescaped), " ")
	}
	doc.Find("br, p, li, div, h1, h2, h3, h4, h5, h6, tr").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// statusError turns a non-200 response into a *model.HTTPError so the retry
// decorator can classify it.
func statusError(resp *http.Response, source string) error {
	return &model.HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Err:        fmt.Errorf("%s: unexpected status %d", source, resp.StatusCode),
	}
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// getJSON GETs url and decodes the JSON body into v. source prefixes errors.
func getJSON(ctx context.Context, client *http.Client, url, source string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, source)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	return nil
}

// jobType folds board-specific employment types ("FullTime", "Full_time",
// "Contractor") onto the lower-case values the rest of the system uses.
func jobType(v string) string {
	k := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(v))
	switch k {
	case "":
		return ""
	case "fulltime":
		return "full-time"
	case "parttime":
		return "part-time"
	case "contract", "contractor", "contracttohire":
		return "contract"
	case "intern", "internship":
		return "internship"
	case "temporary", "temp":
		return "temporary"
	}
	return strings.ToLower(strings.TrimSpace(v))
}
