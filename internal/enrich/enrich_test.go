package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"text/template"

	"github.com/amishk599/c2cradar/internal/model"
)

// mockProvider is a stub Provider for testing.
type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func newTestAnalyzer(p Provider) *LLMAnalyzer {
	tmpl := template.Must(template.New("test").Parse("{{.Title}} | {{.Description}} | {{.Requirements}}"))
	return NewLLMAnalyzer(p, tmpl, nil)
}

const validJSON = `{
	"relevance_score": 0.9,
	"is_corp_to_corp": true,
	"key_skills": ["python", "aws"],
	"experience_level": "expert",
	"remote_friendly": true,
	"urgency_level": "high",
	"salary_indication": "$70/hr",
	"salary_min": 145600,
	"salary_max": null,
	"summary": "Backend role. C2C."
}`

func TestAnalyze_ParsesProviderJSON(t *testing.T) {
	p := &mockProvider{response: validJSON}
	a, err := newTestAnalyzer(p).Analyze(context.Background(), model.AnalysisInput{
		Title: "Python Dev", Description: "desc", Requirements: "reqs",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p.prompt != "Python Dev | desc | reqs" {
		t.Errorf("prompt = %q", p.prompt)
	}
	if !a.IsCorpToCorp || a.RelevanceScore != 0.9 || a.Provider != "mock" {
		t.Errorf("analysis = %+v", a)
	}
	if a.ExperienceLevel != model.LevelSenior {
		t.Errorf("ExperienceLevel = %q, want senior", a.ExperienceLevel)
	}
	if a.SalaryMin == nil || *a.SalaryMin != 145600 || a.SalaryMax != nil {
		t.Errorf("salary = %v/%v", a.SalaryMin, a.SalaryMax)
	}
}

func TestAnalyze_ProviderError(t *testing.T) {
	_, err := newTestAnalyzer(&mockProvider{err: errors.New("network error")}).
		Analyze(context.Background(), model.AnalysisInput{Title: "x"})
	if err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	_, err := newTestAnalyzer(&mockProvider{response: "sure! here you go"}).
		Analyze(context.Background(), model.AnalysisInput{Title: "x"})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseAnalysis_StripsFenceAndClamps(t *testing.T) {
	in := "```json\n{\"relevance_score\": 1.7, \"key_skills\": [\"a\",\"b\",\"c\",\"d\",\"e\",\"f\",\"g\",\"h\",\"i\"], \"urgency_level\": \"whenever\"}\n```"
	a, err := parseAnalysis(in)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if a.RelevanceScore != 1 {
		t.Errorf("RelevanceScore = %v, want clamped 1", a.RelevanceScore)
	}
	if len(a.KeySkills) != maxKeySkills {
		t.Errorf("KeySkills len = %d, want %d", len(a.KeySkills), maxKeySkills)
	}
	if a.UrgencyLevel != model.UrgencyMedium || a.ExperienceLevel != model.LevelMid {
		t.Errorf("levels = %q/%q, want medium/mid", a.UrgencyLevel, a.ExperienceLevel)
	}
}

func TestPromptTemplateRenders(t *testing.T) {
	var b strings.Builder
	err := JobAnalysisTemplate.Execute(&b, model.AnalysisInput{Title: "Go Dev", Description: "Build things"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(b.String(), "Title: Go Dev") || strings.Contains(b.String(), "Requirements:") {
		t.Errorf("unexpected prompt:\n%s", b.String())
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || req.ResponseFormat.JSONSchema.Name != "posting_analysis" {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	out, err := p.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"summary":"ok"}` {
		t.Errorf("out = %q", out)
	}
}

func TestOpenAIProvider_HTTPErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider(srv.URL, "k", "m", srv.Client()).Complete(context.Background(), "p")
	var he *model.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.StatusCode != http.StatusTooManyRequests || he.RetryAfter.Seconds() != 7 {
		t.Errorf("HTTPError = %+v", he)
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestHeuristic_FullShape(t *testing.T) {
	h := NewHeuristic(nil)
	a, err := h.Analyze(context.Background(), model.AnalysisInput{
		Title:        "Senior Python Developer",
		Description:  "Remote C2C role. Python, AWS, Docker, Kubernetes, REST API microservices. Start ASAP.",
		Requirements: "SQL and React",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.IsCorpToCorp || !a.RemoteFriendly {
		t.Errorf("flags = c2c %v remote %v", a.IsCorpToCorp, a.RemoteFriendly)
	}
	if a.ExperienceLevel != model.LevelSenior || a.UrgencyLevel != model.UrgencyHigh {
		t.Errorf("levels = %q/%q", a.ExperienceLevel, a.UrgencyLevel)
	}
	// python react sql aws docker kubernetes api rest microservices = 9 hits -> 0.9 + 0.3 capped.
	if a.RelevanceScore != 1 {
		t.Errorf("RelevanceScore = %v, want 1", a.RelevanceScore)
	}
	if len(a.KeySkills) != 5 || a.KeySkills[0] != "python" {
		t.Errorf("KeySkills = %v", a.KeySkills)
	}
	want := "This is a senior level position for Senior Python Developer. Remote work mentioned."
	if a.Summary != want {
		t.Errorf("Summary = %q, want %q", a.Summary, want)
	}
	if a.SalaryIndication != "Not specified" || a.Provider != "heuristic" {
		t.Errorf("analysis = %+v", a)
	}
}

func TestHeuristic_PlainPosting(t *testing.T) {
	a, _ := NewHeuristic([]string{"c2c"}).Analyze(context.Background(), model.AnalysisInput{
		Title:       "Office Manager",
		Description: "On-site position in our downtown office.",
	})
	if a.IsCorpToCorp || a.RemoteFriendly {
		t.Errorf("flags = c2c %v remote %v", a.IsCorpToCorp, a.RemoteFriendly)
	}
	if a.ExperienceLevel != model.LevelMid || a.UrgencyLevel != model.UrgencyMedium {
		t.Errorf("levels = %q/%q", a.ExperienceLevel, a.UrgencyLevel)
	}
	if math.Abs(a.RelevanceScore) > 1e-9 {
		t.Errorf("RelevanceScore = %v, want 0", a.RelevanceScore)
	}
	if !strings.HasSuffix(a.Summary, "Location-based role.") {
		t.Errorf("Summary = %q", a.Summary)
	}
}
