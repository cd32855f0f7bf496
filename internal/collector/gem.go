package collector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/c2cradar/internal/model"
)

const gemBaseURL = "https://api.gem.com/job_board/v0"

// Ensure Gem implements model.Collector.
var _ model.Collector = (*Gem)(nil)

type gemJob struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Location       gemLocation `json:"location"`
	AbsoluteURL    string      `json:"absolute_url"`
	FirstPublished string      `json:"first_published_at"`
	UpdatedAt      string      `json:"updated_at"`
	Content        string      `json:"content"`
	ContentPlain   string      `json:"content_plain"`
	EmploymentType string      `json:"employment_type"`
}

type gemLocation struct {
	Name string `json:"name"`
}

// Gem collects postings from a Gem job board.
type Gem struct {
	boardToken  string
	companyName string
	client      *http.Client
}

func NewGem(boardToken, companyName string, client *http.Client) *Gem {
	return &Gem{boardToken: boardToken, companyName: companyName, client: client}
}

func (g *Gem) Name() string { return "gem:" + g.boardToken }

func (g *Gem) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s/job_posts/", gemBaseURL, g.boardToken)

	var jobs []gemJob
	if err := getJSON(ctx, g.client, url, "gem fetch for "+g.boardToken, &jobs); err != nil {
		return nil, err
	}

	q := newQuery(keywords, location)
	out := make([]model.RawPosting, 0, len(jobs))
	for _, gj := range jobs {
		desc := gj.ContentPlain
		if desc == "" {
			desc = htmlText(gj.Content)
		}
		if !q.matches(gj.Title+" "+desc, gj.Location.Name) {
			continue
		}
		posted := parseRFC3339(gj.FirstPublished)
		if posted == nil {
			posted = parseRFC3339(gj.UpdatedAt)
		}
		out = append(out, model.RawPosting{
			Title:       gj.Title,
			Company:     g.companyName,
			Location:    gj.Location.Name,
			Description: desc,
			JobType:     jobType(gj.EmploymentType),
			Source:      "gem",
			SourceURL:   gj.AbsoluteURL,
			PostedDate:  posted,
		})
	}
	return out, nil
}
