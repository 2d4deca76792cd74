package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{{ toJson . }}`

// WebhookNotifier sends operation reports to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *httpPoster
	now      func() time.Time
}

// NewWebhookNotifier creates a webhook notifier rendering reports with tmpl.
// It returns nil when no webhook URL is configured.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, tmpl string) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newHTTPPoster("webhook", webhookURL, defaultTiming),
		now:      time.Now,
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, report Report) error {
	if n == nil {
		return nil
	}
	if err := n.poster.waitForRateLimit(ctx, report.Stack); err != nil {
		return err
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = n.now().UTC()
	}

	var buf bytes.Buffer
	if err := n.template.Execute(&buf, report); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}
	if err := n.poster.postWithRetry(ctx, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().
		Str("stack", report.Stack).
		Str("operation", report.Operation).
		Msg("webhook report sent")
	return nil
}
