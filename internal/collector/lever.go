package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// Ensure Lever implements model.Collector.
var _ model.Collector = (*Lever)(nil)

type leverCategories struct {
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

type leverList struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Description      string          `json:"description"`
	Lists            []leverList     `json:"lists"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// Lever collects postings from one company's Lever postings API.
type Lever struct {
	companySlug string
	companyName string
	client      *http.Client
}

// NewLever creates a collector for a Lever board.
func NewLever(companySlug, companyName string, client *http.Client) *Lever {
	return &Lever{
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
	}
}

func (l *Lever) Name() string { return "lever:" + l.companySlug }

// Collect fetches every posting of the company and keeps the ones matching
// keywords and location.
func (l *Lever) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, l.companySlug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "lever fetch for "+l.companySlug)
	}

	var jobs []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
	}

	q := newQuery(keywords, location)
	out := make([]model.RawPosting, 0, len(jobs))
	for _, lj := range jobs {
		// Prefer allLocations if available, fall back to location.
		loc := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			loc = strings.Join(lj.Categories.AllLocations, ", ")
		}
		if strings.EqualFold(lj.WorkplaceType, "remote") && !strings.Contains(strings.ToLower(loc), "remote") {
			loc = strings.TrimPrefix(loc+", Remote", ", ")
		}

		desc := strings.TrimSpace(lj.DescriptionPlain)
		if desc == "" {
			desc = htmlText(lj.Description)
		}
		reqs := leverRequirements(lj.Lists)

		if !q.matches(lj.Text+" "+desc+" "+reqs, loc) {
			continue
		}

		var posted *time.Time
		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt)
			posted = &t
		}

		out = append(out, model.RawPosting{
			Title:        lj.Text,
			Company:      l.companyName,
			Location:     loc,
			Description:  desc,
			Requirements: reqs,
			JobType:      strings.ToLower(lj.Categories.Commitment),
			Source:       "lever",
			SourceURL:    lj.HostedURL,
			PostedDate:   posted,
		})
	}
	return out, nil
}

// leverRequirements flattens the lists whose heading looks like requirements.
func leverRequirements(lists []leverList) string {
	var parts []string
	for _, l := range lists {
		h := strings.ToLower(l.Text)
		if strings.Contains(h, "requirement") || strings.Contains(h, "qualification") || strings.Contains(h, "you have") {
			if t := htmlText(l.Content); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}
