package enrich

import "context"

// Provider sends a prompt to an LLM and returns the raw text response.
// Used only by LLMAnalyzer.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
