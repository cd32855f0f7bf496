package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// Ensure Greenhouse implements model.Collector.
var _ model.Collector = (*Greenhouse)(nil)

type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	Content        string             `json:"content"`
	UpdatedAt      string             `json:"updated_at"`
	FirstPublished string             `json:"first_published"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Greenhouse collects postings from one Greenhouse public job board.
type Greenhouse struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewGreenhouse creates a collector for a Greenhouse board.
func NewGreenhouse(boardToken, companyName string, client *http.Client) *Greenhouse {
	return &Greenhouse{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

func (g *Greenhouse) Name() string { return "greenhouse:" + g.boardToken }

// Collect fetches the whole board with job content and keeps the postings
// matching keywords and location.
func (g *Greenhouse) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, g.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "greenhouse fetch for "+g.boardToken)
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
	}

	q := newQuery(keywords, location)
	out := make([]model.RawPosting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		desc := htmlText(gj.Content)
		if !q.matches(gj.Title+" "+desc, gj.Location.Name) {
			continue
		}
		out = append(out, model.RawPosting{
			Title:       gj.Title,
			Company:     g.companyName,
			Location:    gj.Location.Name,
			Description: desc,
			Source:      "greenhouse",
			SourceURL:   gj.AbsoluteURL,
			PostedDate:  greenhouseDate(gj),
		})
	}
	return out, nil
}

// greenhouseDate prefers first_published over updated_at.
func greenhouseDate(gj greenhouseJob) *time.Time {
	for _, v := range []string{gj.FirstPublished, gj.UpdatedAt} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}
