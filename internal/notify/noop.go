package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// NoopNotifier drops reports.
type NoopNotifier struct{}

// NewNoop returns a notifier that logs the reason once and does nothing thereafter.
func NewNoop(logger zerolog.Logger, reason string) *NoopNotifier {
	if reason != "" {
		logger.Debug().Msg(reason)
	}
	return &NoopNotifier{}
}

// Notify implements Notifier.
func (n *NoopNotifier) Notify(context.Context, Report) error {
	return nil
}
