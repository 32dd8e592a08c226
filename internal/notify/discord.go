package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const maxRetries = 3

// webhookSession abstracts the discordgo.Session method we use, enabling test mocks.
type webhookSession interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord executes a channel webhook for each notice.
type Discord struct {
	sess        webhookSession
	webhookID   string
	token       string
	baseBackoff time.Duration
}

// NewDiscord returns a Discord notifier. Webhooks need no bot token.
func NewDiscord(webhookID, token string) (*Discord, error) {
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{sess: sess, webhookID: webhookID, token: token, baseBackoff: time.Second}, nil
}

func (d *Discord) Name() string { return "discord" }

// Notify executes the webhook, retrying while Discord rate limits us.
func (d *Discord) Notify(ctx context.Context, n Notice) error {
	params := &discordgo.WebhookParams{
		Content: n.Title(),
		Embeds:  []*discordgo.MessageEmbed{noticeEmbed(n)},
	}
	for attempt := 0; ; attempt++ {
		_, err := d.sess.WebhookExecute(d.webhookID, d.token, false, params, discordgo.WithContext(ctx))
		if err == nil {
			return nil
		}
		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 || attempt == maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.baseBackoff << attempt):
		}
	}
}

func noticeEmbed(n Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: n.Title(),
		Color: parseHexColor(colorPublished),
	}
	for _, f := range n.Fields() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Short})
	}
	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}
