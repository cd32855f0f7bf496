package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/retry"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier mirrors alert deliveries to a Slack channel via an Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each delivery to Slack.
// Rate-limited and 5xx posts are retried under policy.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, policy retry.Policy, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		policy:     policy,
		logger:     logger,
	}
}

// Deliver posts one Block Kit message for the delivery.
func (s *SlackNotifier) Deliver(ctx context.Context, d model.Delivery) error {
	body, err := json.Marshal(buildPayload(d))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	err = retry.Do(ctx, s.policy, s.logger, "slack post", func(ctx context.Context) error {
		return s.post(ctx, body)
	})
	if err != nil {
		return err
	}
	s.logger.Info("slack message sent", "company", d.Posting.Company, "title", d.Posting.Title, "to", d.Email)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: time.Duration(secs) * time.Second,
			Err:        fmt.Errorf("slack returned %d", resp.StatusCode),
		}
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func buildPayload(d model.Delivery) slackPayload {
	v := newView(d)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: v.Company + ": " + v.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Location:*\n" + v.Location},
				{Type: "mrkdwn", Text: "*Salary:*\n" + v.Salary},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*C2C:*\n" + v.CorpToCorp},
				{Type: "mrkdwn", Text: "*Relevance:*\n" + v.Relevance},
				{Type: "mrkdwn", Text: "*Posted:*\n" + v.Posted},
				{Type: "mrkdwn", Text: "*Source:*\n" + v.Source},
			},
		},
	}

	if v.Summary != "" {
		text := fmt.Sprintf("*Level:* %s   *Skills:* %s\n%s", orDash(v.Level), orDash(v.Skills), v.Summary)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "_Alert for " + d.Email + ": " + strings.TrimSpace(d.Keywords) + "_"},
		},
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "View Posting"},
					URL:   v.URL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
