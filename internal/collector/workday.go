package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

const (
	workdayPageSize = 20
	workdayMaxPages = 5
)

// Ensure Workday implements model.Collector.
var _ model.Collector = (*Workday)(nil)

type workdaySearchRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type workdaySearchResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string `json:"title"`
	ExternalPath  string `json:"externalPath"`
	LocationsText string `json:"locationsText"`
	PostedOn      string `json:"postedOn"`
}

type workdayDetailResponse struct {
	JobPostingInfo struct {
		Title               string   `json:"title"`
		JobDescription      string   `json:"jobDescription"`
		Location            string   `json:"location"`
		AdditionalLocations []string `json:"additionalLocations"`
		TimeType            string   `json:"timeType"`
		PostedOn            string   `json:"postedOn"`
		StartDate           string   `json:"startDate"`
		ExternalURL         string   `json:"externalUrl"`
	} `json:"jobPostingInfo"`
}

// Workday collects postings from a Workday career site. Keyword search runs
// on the Workday side; each hit costs one extra request for its details.
type Workday struct {
	baseURL     string // e.g. https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External
	companyName string
	client      *http.Client
}

func NewWorkday(baseURL, companyName string, client *http.Client) *Workday {
	return &Workday{
		baseURL:     strings.TrimRight(baseURL, "/"),
		companyName: companyName,
		client:      client,
	}
}

func (w *Workday) Name() string { return "workday:" + w.companyName }

// Collect searches the site for keywords, newest first, and stops paging once
// listings are older than Workday reports dates for. A listing whose detail
// request fails is kept with listing-level data only.
func (w *Workday) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	listings, err := w.search(ctx, keywords)
	if err != nil {
		return nil, err
	}

	q := newQuery("", location)
	var out []model.RawPosting
	for _, l := range listings {
		// "3 Locations" says nothing; the detail decides.
		if !ambiguousLocation.MatchString(l.LocationsText) && !q.locationMatches(l.LocationsText) {
			continue
		}

		p, err := w.detail(ctx, l)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p = w.fromListing(l)
		}
		if !q.locationMatches(p.Location) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (w *Workday) search(ctx context.Context, keywords string) ([]workdayListing, error) {
	source := "workday search for " + w.companyName
	var all []workdayListing

	for page := 0; page < workdayMaxPages; page++ {
		body, err := json.Marshal(workdaySearchRequest{
			AppliedFacets: map[string]any{},
			Limit:         workdayPageSize,
			Offset:        page * workdayPageSize,
			SearchText:    keywords,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/jobs", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		var sr workdaySearchResponse
		if resp.StatusCode != http.StatusOK {
			err = statusError(resp, source)
		} else if derr := json.NewDecoder(resp.Body).Decode(&sr); derr != nil {
			err = fmt.Errorf("%s: %w", source, derr)
		}
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		all = append(all, sr.JobPostings...)

		n := len(sr.JobPostings)
		if n == 0 || (page+1)*workdayPageSize >= sr.Total {
			break
		}
		// Results are newest first; past this point there are no dates to keep.
		if parsePostedOn(sr.JobPostings[n-1].PostedOn, time.Now()) == nil {
			break
		}
	}
	return all, nil
}

func (w *Workday) detail(ctx context.Context, l workdayListing) (model.RawPosting, error) {
	url := w.baseURL + "/" + strings.TrimPrefix(l.ExternalPath, "/")

	var dr workdayDetailResponse
	if err := getJSON(ctx, w.client, url, "workday detail for "+w.companyName, &dr); err != nil {
		return model.RawPosting{}, err
	}
	info := dr.JobPostingInfo

	loc := info.Location
	if len(info.AdditionalLocations) > 0 {
		loc = strings.Join(append([]string{loc}, info.AdditionalLocations...), "; ")
	}

	posted := parseDate(info.StartDate)
	if posted == nil {
		posted = parsePostedOn(info.PostedOn, time.Now())
	}

	return model.RawPosting{
		Title:       info.Title,
		Company:     w.companyName,
		Location:    loc,
		Description: htmlText(info.JobDescription),
		JobType:     jobType(info.TimeType),
		Source:      "workday",
		SourceURL:   info.ExternalURL,
		PostedDate:  posted,
	}, nil
}

func (w *Workday) fromListing(l workdayListing) model.RawPosting {
	return model.RawPosting{
		Title:      l.Title,
		Company:    w.companyName,
		Location:   l.LocationsText,
		Source:     "workday",
		SourceURL:  w.baseURL + "/" + strings.TrimPrefix(l.ExternalPath, "/"),
		PostedDate: parsePostedOn(l.PostedOn, time.Now()),
	}
}

var (
	ambiguousLocation = regexp.MustCompile(`^\d+ Locations?$`)
	postedDaysAgo     = regexp.MustCompile(`^Posted (\d+) Days? Ago$`)
)

// parsePostedOn turns Workday's "Posted Today" / "Posted 3 Days Ago" into a
// date relative to now. "Posted 30+ Days Ago" and anything unknown give nil.
func parsePostedOn(s string, now time.Time) *time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	days := -1
	switch s {
	case "Posted Today":
		days = 0
	case "Posted Yesterday":
		days = 1
	default:
		if m := postedDaysAgo.FindStringSubmatch(s); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				days = n
			}
		}
	}
	if days < 0 {
		return nil
	}
	t := today.AddDate(0, 0, -days)
	return &t
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}
