// Package tracker follows a stack operation until the stack settles,
// relaying stack events to an observer as they arrive.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/nholik/stackpilot/internal/notify"
	"github.com/rs/zerolog"
)

// Sleeper pauses between polls. It returns early with an error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tracker polls the event stream and status of a single stack.
type Tracker struct {
	client       cfn.Client
	observer     notify.Observer
	logger       zerolog.Logger
	pollInterval time.Duration
	sleep        Sleeper
	now          func() time.Time
	metrics      *metrics.Metrics
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithSleeper overrides how the tracker waits between polls.
func WithSleeper(sleep Sleeper) Option {
	return func(t *Tracker) {
		t.sleep = sleep
	}
}

// WithClock overrides the clock used for event cursors.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithMetrics records polls and relayed events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// New constructs a Tracker. A nil observer discards events.
func New(client cfn.Client, observer notify.Observer, logger zerolog.Logger, pollInterval time.Duration, opts ...Option) *Tracker {
	if observer == nil {
		observer = notify.NopObserver{}
	}
	t := &Tracker{
		client:       client,
		observer:     observer,
		logger:       logger,
		pollInterval: pollInterval,
		sleep:        Sleep,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns a cursor for events produced by a mutation issued after this call.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Wait polls until the stack reaches a terminal status and returns the final
// snapshot. Events newer than since are relayed oldest first. A stack that
// can no longer be described is reported as DELETE_COMPLETE.
func (t *Tracker) Wait(ctx context.Context, stack string, since time.Time) (*cfn.Stack, error) {
	if t.pollInterval <= 0 {
		return nil, errors.New("poll interval must be greater than zero")
	}

	cursor := since
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := t.relayEvents(ctx, stack, cursor)
		if err != nil {
			return nil, err
		}
		cursor = next

		t.metrics.IncPolls("stack")
		current, err := t.client.DescribeStack(ctx, stack)
		if err != nil {
			if !cfn.IsStackNotFound(err) {
				return nil, err
			}
			t.logger.Debug().Str("stack", stack).Msg("stack no longer described, treating as deleted")
			current = &cfn.Stack{Name: stack, ID: stack, Status: cfn.StatusDeleteComplete}
		}

		if cfn.IsTerminal(current.Status) {
			t.logger.Debug().
				Str("stack", stack).
				Str("status", current.Status).
				Msg("stack reached terminal status")
			return current, nil
		}

		if err := t.sleep(ctx, t.pollInterval); err != nil {
			return nil, err
		}
	}
}

// relayEvents emits events newer than cursor and returns the advanced cursor.
func (t *Tracker) relayEvents(ctx context.Context, stack string, cursor time.Time) (time.Time, error) {
	events, err := t.client.DescribeStackEvents(ctx, stack, cursor)
	if err != nil {
		if cfn.IsStackNotFound(err) {
			return cursor, nil
		}
		return cursor, err
	}

	next := cursor
	relayed := 0
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if !event.Timestamp.After(cursor) {
			continue
		}
		t.observer.StackEvent(event)
		if event.Timestamp.After(next) {
			next = event.Timestamp
		}
		relayed++
	}
	t.metrics.AddStackEvents(relayed)
	return next, nil
}
