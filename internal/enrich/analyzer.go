// Package enrich produces the structured Analysis stored with each posting,
// using an LLM provider when configured and a keyword heuristic otherwise.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/c2cradar/internal/model"
)

// Ensure LLMAnalyzer implements model.Analyzer.
var _ model.Analyzer = (*LLMAnalyzer)(nil)

// maxKeySkills caps the skill list kept from a provider response.
const maxKeySkills = 8

// LLMAnalyzer implements model.Analyzer using an LLM.
type LLMAnalyzer struct {
	provider Provider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMAnalyzer creates an analyzer that asks provider to analyze each posting.
func NewLLMAnalyzer(provider Provider, tmpl *template.Template, logger *slog.Logger) *LLMAnalyzer {
	return &LLMAnalyzer{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Analyze renders the prompt, calls the provider and parses its JSON answer.
func (a *LLMAnalyzer) Analyze(ctx context.Context, in model.AnalysisInput) (model.Analysis, error) {
	var promptBuf bytes.Buffer
	if err := a.tmpl.Execute(&promptBuf, in); err != nil {
		return model.Analysis{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := a.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.Analysis{}, fmt.Errorf("llm complete: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("parse analysis: %w", err)
	}
	analysis.Provider = a.provider.Name()

	if a.logger != nil {
		a.logger.Debug("analyzed posting", "title", in.Title, "provider", analysis.Provider, "score", analysis.RelevanceScore)
	}
	return analysis, nil
}

// parseAnalysis decodes a provider response. Gemini sometimes wraps JSON in a
// markdown fence even with a JSON mime type, so fences are stripped first.
func parseAnalysis(raw string) (model.Analysis, error) {
	raw = stripFence(raw)

	var a model.Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return model.Analysis{}, fmt.Errorf("unmarshal analysis JSON: %w", err)
	}

	a.Normalize()
	if len(a.KeySkills) > maxKeySkills {
		a.KeySkills = a.KeySkills[:maxKeySkills]
	}
	return a, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
