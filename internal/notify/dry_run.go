package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRunNotifier logs reports without delivering them.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery to inner.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, report Report) error {
	n.logger.Info().
		Str("stack", report.Stack).
		Str("operation", report.Operation).
		Str("outcome", report.Outcome).
		Str("status", report.Status).
		Str("changes", SummarizeChanges(report.Changes).String()).
		Str("error", report.Error).
		Msg("[DRY-RUN] Would notify")
	return nil
}
