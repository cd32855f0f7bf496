package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/c2cradar/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes each delivery to the given logger instead of sending it.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each delivery via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver logs recipient, company, title, location, URL and score.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Deliver(_ context.Context, d model.Delivery) error {
	p := d.Posting
	args := []any{
		"to", d.Email,
		"company", p.Company,
		"title", p.Title,
		"location", p.Location,
		"url", p.SourceURL,
		"relevance", p.RelevanceScore,
	}
	if p.PostedDate != nil {
		args = append(args, "posted_at", *p.PostedDate)
	}
	n.logger.Info("job alert", args...)
	return nil
}
