// Package notifications posts sync run outcomes to Slack.
package notifications

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

const defaultTimeout = 10 * time.Second

// SlackNotifier delivers run summaries to an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackNotifier creates a notifier for the given incoming webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Name returns the channel name
func (s *SlackNotifier) Name() string {
	return "slack"
}

// NotifyRun posts one message describing the run outcome.
func (s *SlackNotifier) NotifyRun(ctx context.Context, res updater.Result) error {
	msg := &slack.WebhookMessage{
		Text:   fallbackText(res),
		Blocks: &slack.Blocks{BlockSet: buildMessageBlocks(res)},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post Slack webhook: %w", err)
	}

	log.Debug().
		Str("run_id", res.RunID).
		Str("status", string(res.Status)).
		Msg("Slack run notification sent")

	return nil
}

func fallbackText(res updater.Result) string {
	if res.Status == updater.StatusUpdated {
		return fmt.Sprintf("Account %s updated: %d -> %d", res.TargetAccount, res.Previous, res.Current)
	}
	return fmt.Sprintf("Account sync %s: %s", res.Status, res.Error)
}

func buildMessageBlocks(res updater.Result) []slack.Block {
	var emoji, title string
	switch res.Status {
	case updater.StatusUpdated:
		emoji = ":white_check_mark:"
		title = fmt.Sprintf("Account %s updated", res.TargetAccount)
	case updater.StatusNoData:
		emoji = ":information_source:"
		title = "No companies found in Cube data"
	default:
		emoji = ":x:"
		title = fmt.Sprintf("Account sync failed (%s)", res.Status)
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(
				"mrkdwn",
				fmt.Sprintf("%s *%s*", emoji, title),
				false,
				false,
			),
			nil,
			nil,
		),
	}

	if res.Status == updater.StatusUpdated && res.Company != nil {
		fields := []*slack.TextBlockObject{
			slack.NewTextBlockObject("mrkdwn", "*Company*\n"+res.Company.Name, false, false),
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Employees*\n%d → %d", res.Previous, res.Current), false, false),
		}
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}

	if res.Error != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", res.Error, false, false),
			nil,
			nil,
		))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", "Run "+res.RunID, false, false),
	))

	return blocks
}
