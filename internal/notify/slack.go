package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	slackMaxBlocks = 50
	// header and context blocks are repeated in every message
	slackReservedBlocks = 2
	slackMaxChanges     = slackMaxBlocks - slackReservedBlocks
)

// SlackNotifier posts operation reports to a Slack incoming webhook.
type SlackNotifier struct {
	logger zerolog.Logger
	timing timingConfig
	poster *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack reports disabled")
	}

	notifier := &SlackNotifier{logger: logger, timing: defaultTiming}
	for _, opt := range opts {
		opt(notifier)
	}
	notifier.poster = newHTTPPoster("slack", webhookURL, notifier.timing)
	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, report Report) error {
	if err := n.poster.waitForRateLimit(ctx, report.Stack); err != nil {
		return err
	}

	messages := buildSlackMessages(report)
	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.postWithRetry(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Str("stack", report.Stack).
		Int("changes", len(report.Changes)).
		Int("messages", len(messages)).
		Msg("slack report sent")
	return nil
}

func (n *SlackNotifier) postOnce(ctx context.Context, payload []byte) error {
	return n.poster.postOnce(ctx, payload)
}

func slackSummary(report Report) string {
	if report.Failed() {
		return fmt.Sprintf("Stack %s: %s failed", report.Stack, report.Operation)
	}
	return fmt.Sprintf("Stack %s: %s %s", report.Stack, report.Operation, report.Outcome)
}

// buildSlackMessages always returns at least one message; changes beyond the
// block limit are split across numbered parts.
func buildSlackMessages(report Report) []slack.WebhookMessage {
	changes := sortedChanges(report.Changes)
	total := len(changes)
	if total <= slackMaxChanges {
		return []slack.WebhookMessage{buildSlackMessage(report, changes, 1, 1)}
	}

	parts := (total + slackMaxChanges - 1) / slackMaxChanges
	messages := make([]slack.WebhookMessage, 0, parts)
	for i := 0; i < total; i += slackMaxChanges {
		end := min(i+slackMaxChanges, total)
		messages = append(messages, buildSlackMessage(report, changes[i:end], i/slackMaxChanges+1, parts))
	}
	return messages
}

func buildSlackMessage(report Report, changes []cfn.Change, part, parts int) slack.WebhookMessage {
	summary := slackSummary(report)
	if parts > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, part, parts)
	}
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))

	elements := []slack.MixedElement{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Stack: *%s*", report.Stack), false, false),
	}
	if report.Status != "" {
		elements = append(elements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Status: `%s`", report.Status), false, false))
	}
	if report.PreviousStatus != "" && report.PreviousStatus != report.Status {
		elements = append(elements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Previous: `%s`", report.PreviousStatus), false, false))
	}
	if len(report.Changes) > 0 {
		elements = append(elements, slack.NewTextBlockObject("mrkdwn", SummarizeChanges(report.Changes).String(), false, false))
	}
	if report.Failed() {
		elements = append(elements, slack.NewTextBlockObject("mrkdwn", "Error: "+report.Error, false, false))
	}

	blocks := []slack.Block{header, slack.NewContextBlock("", elements...)}
	for _, change := range changes {
		blocks = append(blocks, buildChangeBlock(change))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildChangeBlock(change cfn.Change) slack.Block {
	title := fmt.Sprintf("*%s* `%s`", change.LogicalID, change.Action)
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", "*Type:*\n"+change.ResourceType, false, false),
	}
	if change.Replacement != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", "*Replacement:*\n"+change.Replacement, false, false))
	}
	return slack.NewSectionBlock(text, fields, nil)
}
