package notify

import (
	"context"

	"github.com/slack-go/slack"
)

// webhookPoster posts to a Slack incoming webhook.
type webhookPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// Slack posts notices to an incoming webhook.
type Slack struct {
	url  string
	post webhookPoster
}

// NewSlack returns a Slack notifier for webhook url.
func NewSlack(url string) *Slack {
	return &Slack{url: url, post: slack.PostWebhookContext}
}

func (s *Slack) Name() string { return "slack" }

// Notify posts n as a single attachment.
func (s *Slack) Notify(ctx context.Context, n Notice) error {
	return s.post(ctx, s.url, slackMessage(n))
}

func slackMessage(n Notice) *slack.WebhookMessage {
	att := slack.Attachment{
		Color: colorPublished,
		Title: n.Title(),
	}
	for _, f := range n.Fields() {
		att.Fields = append(att.Fields, slack.AttachmentField{Title: f.Name, Value: f.Value, Short: f.Short})
	}
	return &slack.WebhookMessage{
		Text:        n.Title(),
		Attachments: []slack.Attachment{att},
	}
}
