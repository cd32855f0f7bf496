package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// Ensure Ashby implements model.Collector.
var _ model.Collector = (*Ashby)(nil)

type ashbyJob struct {
	Title            string `json:"title"`
	Location         string `json:"location"`
	EmploymentType   string `json:"employmentType"`
	IsRemote         bool   `json:"isRemote"`
	IsListed         bool   `json:"isListed"`
	JobURL           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	DescriptionPlain string `json:"descriptionPlain"`
	DescriptionHTML  string `json:"descriptionHtml"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby collects postings from an Ashby hosted job board.
type Ashby struct {
	boardToken  string
	companyName string
	client      *http.Client
}

func NewAshby(boardToken, companyName string, client *http.Client) *Ashby {
	return &Ashby{boardToken: boardToken, companyName: companyName, client: client}
}

func (a *Ashby) Name() string { return "ashby:" + a.boardToken }

// Collect fetches the listed jobs of the board and keeps the ones matching
// keywords and location. Unlisted jobs are skipped.
func (a *Ashby) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)
	source := "ashby fetch for " + a.boardToken

	var resp ashbyResponse
	if err := getJSON(ctx, a.client, url, source, &resp); err != nil {
		return nil, err
	}

	q := newQuery(keywords, location)
	out := make([]model.RawPosting, 0, len(resp.Jobs))
	for _, aj := range resp.Jobs {
		if !aj.IsListed {
			continue
		}
		loc := aj.Location
		if aj.IsRemote && !strings.Contains(strings.ToLower(loc), "remote") {
			loc = strings.TrimPrefix(loc+", Remote", ", ")
		}
		desc := aj.DescriptionPlain
		if desc == "" {
			desc = htmlText(aj.DescriptionHTML)
		}
		if !q.matches(aj.Title+" "+desc, loc) {
			continue
		}
		out = append(out, model.RawPosting{
			Title:       aj.Title,
			Company:     a.companyName,
			Location:    loc,
			Description: desc,
			JobType:     jobType(aj.EmploymentType),
			Source:      "ashby",
			SourceURL:   aj.JobURL,
			PostedDate:  parseRFC3339(aj.PublishedAt),
		})
	}
	return out, nil
}

func parseRFC3339(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
