// Package changeset creates, polls and inspects changesets ahead of a stack
// update.
package changeset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/nholik/stackpilot/internal/tracker"
)

// DefaultNamePrefix is used when NewName receives an empty prefix.
const DefaultNamePrefix = "stackpilot"

// DefaultNoChangeMessages are the failure reasons the control plane gives for
// a changeset that contains nothing to apply.
var DefaultNoChangeMessages = []string{
	"The submitted information didn't contain changes",
	"No updates are to be performed",
}

const previousTemplateMissing = "It is probable that the template has been explicitly deleted or removed by lifecycle policy on your bucket. Please retry specifying the path to the template file"

// NewName returns a unique changeset name. Names must start with a letter.
func NewName(prefix string) string {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	return prefix + "-" + uuid.NewString()
}

// FailedError reports a changeset that failed for a reason other than
// having nothing to change.
type FailedError struct {
	ChangeSetID string
	Reason      string
}

func (e *FailedError) Error() string {
	return "unable to create changeset: " + e.Reason
}

// IsNoChange reports whether reason contains one of messages.
func IsNoChange(reason string, messages []string) bool {
	for _, msg := range messages {
		if msg != "" && strings.Contains(reason, msg) {
			return true
		}
	}
	return false
}

// Classify inspects a settled changeset. It reports noChange for a failed
// changeset whose reason matches messages and a *FailedError for any other
// failure. An access denied failure while reusing the previous template is
// reported with a hint that the stored template is gone.
func Classify(cs *cfn.ChangeSet, usedPreviousTemplate bool, messages []string) (noChange bool, err error) {
	if cs == nil || cs.Status != cfn.ChangeSetFailed {
		return false, nil
	}
	reason := cs.StatusReason
	if usedPreviousTemplate && strings.Contains(reason, "Access Denied") {
		return false, &FailedError{ChangeSetID: cs.ID, Reason: previousTemplateMissing}
	}
	if IsNoChange(reason, messages) {
		return true, nil
	}
	return false, &FailedError{ChangeSetID: cs.ID, Reason: reason}
}

// Poller waits for a changeset to finish computing.
type Poller struct {
	client   cfn.Client
	interval time.Duration
	sleep    tracker.Sleeper
	metrics  *metrics.Metrics
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithSleeper overrides how the poller waits between describes.
func WithSleeper(sleep tracker.Sleeper) PollerOption {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

// WithMetrics counts changeset polls.
func WithMetrics(m *metrics.Metrics) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

// NewPoller polls at half the stack poll interval, since changesets settle
// faster than stack operations.
func NewPoller(client cfn.Client, stackPollInterval time.Duration, opts ...PollerOption) *Poller {
	interval := stackPollInterval / 2
	if interval <= 0 {
		interval = stackPollInterval
	}
	p := &Poller{client: client, interval: interval, sleep: tracker.Sleep}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll describes the changeset until it is CREATE_COMPLETE or FAILED.
func (p *Poller) Poll(ctx context.Context, changeSetID, stack string) (*cfn.ChangeSet, error) {
	if p.interval <= 0 {
		return nil, fmt.Errorf("changeset poll interval must be greater than zero")
	}
	for {
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, err
		}
		p.metrics.IncPolls("changeset")
		cs, err := p.client.DescribeChangeSet(ctx, changeSetID, stack)
		if err != nil {
			return nil, err
		}
		switch cs.Status {
		case cfn.ChangeSetCreateComplete, cfn.ChangeSetFailed:
			return cs, nil
		}
	}
}
