package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/textmatch"
)

// descriptionPreview caps how much of the description goes into a message.
const descriptionPreview = 500

// Subject is the e-mail subject line for a delivery.
func Subject(p model.Posting) string {
	return fmt.Sprintf("New Job Alert: %s at %s", p.Title, p.Company)
}

// view is the flattened posting shown in every message format.
type view struct {
	Title, Company, Location string
	Salary                   string
	JobType                  string
	CorpToCorp               string
	Relevance                string
	Posted                   string
	Source                   string
	Description              string
	Truncated                bool
	Skills                   string
	Level                    string
	Remote                   string
	Summary                  string
	URL                      string
	Keywords                 string
}

func newView(d model.Delivery) view {
	p := d.Posting
	v := view{
		Title:      p.Title,
		Company:    p.Company,
		Location:   p.Location,
		Salary:     model.FormatSalary(p.SalaryMin, p.SalaryMax),
		JobType:    orDash(p.JobType),
		CorpToCorp: yesNo(p.IsCorpToCorp),
		Relevance:  fmt.Sprintf("%.0f%%", p.RelevanceScore*100),
		Posted:     "Unknown",
		Source:     p.Source,
		URL:        p.SourceURL,
		Keywords:   d.Keywords,
	}
	if p.PostedDate != nil {
		v.Posted = p.PostedDate.UTC().Format(time.RFC1123)
	}
	v.Description = textmatch.Prefix(p.Description, descriptionPreview)
	v.Truncated = len(v.Description) < len(p.Description)
	if a := p.Analysis; a != nil {
		v.Skills = strings.Join(a.KeySkills, ", ")
		v.Level = a.ExperienceLevel
		v.Remote = yesNo(a.RemoteFriendly)
		v.Summary = a.Summary
	}
	return v
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// TextBody renders the plain-text alternative.
func TextBody(d model.Delivery) string {
	v := newView(d)
	var b strings.Builder
	fmt.Fprintf(&b, "New job matching your alert: %s\n\n", v.Keywords)
	fmt.Fprintf(&b, "%s\n%s - %s\n\n", v.Title, v.Company, v.Location)
	fmt.Fprintf(&b, "Salary: %s\n", v.Salary)
	fmt.Fprintf(&b, "Job type: %s\n", v.JobType)
	fmt.Fprintf(&b, "Corp to corp: %s\n", v.CorpToCorp)
	fmt.Fprintf(&b, "Relevance: %s\n", v.Relevance)
	fmt.Fprintf(&b, "Posted: %s\n", v.Posted)
	fmt.Fprintf(&b, "Source: %s\n\n", v.Source)

	b.WriteString(v.Description)
	if v.Truncated {
		b.WriteString("...")
	}
	b.WriteString("\n\n")

	if v.Summary != "" || v.Skills != "" {
		fmt.Fprintf(&b, "Key skills: %s\n", orDash(v.Skills))
		fmt.Fprintf(&b, "Experience level: %s\n", orDash(v.Level))
		fmt.Fprintf(&b, "Remote: %s\n", v.Remote)
		fmt.Fprintf(&b, "Summary: %s\n\n", v.Summary)
	}

	fmt.Fprintf(&b, "View posting: %s\n\n", v.URL)
	fmt.Fprintf(&b, "You are receiving this because you subscribed to alerts for: %s\n", v.Keywords)
	return b.String()
}

var htmlTmpl = template.Must(template.New("alert").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.5;">
<h2>{{.Title}}</h2>
<p><strong>{{.Company}}</strong> - {{.Location}}</p>
<table>
<tr><td><strong>Salary:</strong></td><td>{{.Salary}}</td></tr>
<tr><td><strong>Job type:</strong></td><td>{{.JobType}}</td></tr>
<tr><td><strong>Corp to corp:</strong></td><td>{{.CorpToCorp}}</td></tr>
<tr><td><strong>Relevance:</strong></td><td>{{.Relevance}}</td></tr>
<tr><td><strong>Posted:</strong></td><td>{{.Posted}}</td></tr>
<tr><td><strong>Source:</strong></td><td>{{.Source}}</td></tr>
</table>
<p>{{.Description}}{{if .Truncated}}...{{end}}</p>
{{- if or .Summary .Skills}}
<h3>Analysis</h3>
<ul>
<li><strong>Key skills:</strong> {{.Skills}}</li>
<li><strong>Experience level:</strong> {{.Level}}</li>
<li><strong>Remote:</strong> {{.Remote}}</li>
<li><strong>Summary:</strong> {{.Summary}}</li>
</ul>
{{- end}}
<p><a href="{{.URL}}">View posting</a></p>
<hr>
<p style="font-size: 12px; color: #666;">You are receiving this because you subscribed to alerts for: {{.Keywords}}</p>
</body>
</html>
`))

// HTMLBody renders the HTML alternative.
func HTMLBody(d model.Delivery) (string, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, newView(d)); err != nil {
		return "", fmt.Errorf("render html body: %w", err)
	}
	return buf.String(), nil
}

// SampleDelivery is a canned delivery used to verify a notifier setup.
func SampleDelivery(email string) model.Delivery {
	now := time.Now()
	lo, hi := 120000.0, 150000.0
	return model.Delivery{
		Email:    email,
		Keywords: "golang c2c",
		Posting: model.Posting{
			Title:          "Senior Go Engineer (C2C)",
			Company:        "c2cradar Test",
			Location:       "Remote, US",
			Description:    "This is a test notification. Corp-to-corp contract building Go services on AWS.",
			SalaryMin:      &lo,
			SalaryMax:      &hi,
			JobType:        "contract",
			Source:         "test",
			SourceURL:      "https://example.com/jobs/test",
			IsCorpToCorp:   true,
			PostedDate:     &now,
			RelevanceScore: 0.9,
			Analysis: &model.Analysis{
				KeySkills:       []string{"go", "aws"},
				ExperienceLevel: model.LevelSenior,
				RemoteFriendly:  true,
				Summary:         "Integration check.",
			},
		},
	}
}
