package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

const defaultUsername = "SSH-ECS"

var _ core.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts the approval message to an incoming webhook. The
// message carries the validator token and a human-readable summary; it never
// contains the requester token.
type SlackNotifier struct {
	webhookURL string
	username   string
}

func NewSlackNotifier(cfg config.SlackConfig) *SlackNotifier {
	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		username:   username,
	}
}

func (n *SlackNotifier) NotifyAccessRequest(ctx context.Context, req core.AccessRequest) error {
	text := fmt.Sprintf(
		"User: `%s` wants to access *%s* - *%s*.\nTo accept this request, run the following command as an admin:\n`sshecs approve %s`",
		req.Subject, req.Target.Product, req.Target.Cluster, req.ValidatorToken,
	)

	msg := &slack.WebhookMessage{
		Username: n.username,
		Text:     text,
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("posting slack webhook: %w", err)
	}
	return nil
}
