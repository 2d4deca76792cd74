// Package runner executes one lifecycle operation and fans its result out to
// the operation journal, notifiers and the metrics textfile.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/nholik/stackpilot/internal/notify"
	"github.com/nholik/stackpilot/internal/stack"
	"github.com/nholik/stackpilot/internal/state"
	"github.com/rs/zerolog"
)

// Operation is one orchestrator call, e.g. Orchestrator.Create.
type Operation func(ctx context.Context) (stack.Result, error)

// Runner records finished operations.
type Runner struct {
	logger      zerolog.Logger
	journal     *state.Journal
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	metricsFile string
	now         func() time.Time
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithJournal records every operation in journal.
func WithJournal(journal *state.Journal) Option {
	return func(r *Runner) {
		r.journal = journal
	}
}

// WithNotifier sends a report after each operation.
func WithNotifier(notifier notify.Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithMetricsFile writes m to path after each operation. An empty path
// disables the export.
func WithMetricsFile(m *metrics.Metrics, path string) Option {
	return func(r *Runner) {
		r.metrics = m
		r.metricsFile = path
	}
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New constructs a Runner with the given logger.
func New(logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.journal == nil {
		r.journal = state.NewJournal(nil)
	}
	return r
}

// Run executes op for stackName and records the result. The operation's own
// error is returned unchanged; failures while recording are logged.
func (r *Runner) Run(ctx context.Context, stackName, operation string, op Operation) (stack.Result, error) {
	res, opErr := op(ctx)

	rec := newRecord(operation, res, opErr, r.now().UTC())

	tr, err := r.journal.Append(ctx, stackName, rec)
	if err != nil {
		r.logger.Error().Err(wrapRuntime("journal", err)).Msg("failed to record operation")
		tr = state.DetectTransition(stackName, nil, rec)
	}
	r.logTransition(tr)

	if r.shouldNotify(rec, tr) {
		report := newReport(stackName, rec, res, tr)
		if err := r.notifier.Notify(ctx, report); err != nil {
			r.logger.Error().Err(wrapRuntime("notify", err)).Msg("failed to send notification")
		}
	}

	if r.metricsFile != "" {
		if err := r.metrics.WriteTextfile(r.metricsFile); err != nil {
			r.logger.Error().Err(wrapRuntime("metrics", err)).Str("path", r.metricsFile).Msg("failed to write metrics")
		}
	}

	return res, opErr
}

// shouldNotify skips repeated no-op updates.
func (r *Runner) shouldNotify(rec state.Record, tr state.Transition) bool {
	if r.notifier == nil {
		return false
	}
	if rec.Outcome == string(stack.NoChange) && !tr.Changed() {
		r.logger.Debug().Msg("no change since last operation, skipping notification")
		return false
	}
	return true
}

func (r *Runner) logTransition(tr state.Transition) {
	if tr.FirstRun || !tr.Changed() {
		return
	}
	event := r.logger.Info()
	switch {
	case tr.Regressed:
		event = r.logger.Warn()
	case tr.Recovered:
		event = r.logger.Info().Bool("recovered", true)
	}
	event.
		Str("stack", tr.Stack).
		Str("previous_outcome", tr.PreviousOutcome).
		Str("current_outcome", tr.CurrentOutcome).
		Str("previous_status", tr.PreviousStatus).
		Str("current_status", tr.CurrentStatus).
		Msg("stack transition detected")
}

func newRecord(operation string, res stack.Result, opErr error, completedAt time.Time) state.Record {
	rec := state.Record{
		StackID:     res.StackID,
		Operation:   operation,
		Outcome:     string(res.Outcome),
		CompletedAt: completedAt,
	}
	if res.ChangeSet != nil {
		rec.ChangeSetID = res.ChangeSet.ID
	}
	if res.Stack != nil {
		rec.Status = res.Stack.Status
		if rec.StackID == "" {
			rec.StackID = res.Stack.ID
		}
	}
	if opErr != nil {
		rec.Outcome = "Error"
		rec.Error = opErr.Error()
		var failed *stack.OperationFailedError
		var conflict *stack.StateConflictError
		switch {
		case errors.As(opErr, &failed) && failed.Stack != nil:
			rec.Status = failed.Stack.Status
			rec.StackID = failed.Stack.ID
		case errors.As(opErr, &conflict) && conflict.Stack != nil:
			rec.Status = conflict.Stack.Status
			rec.StackID = conflict.Stack.ID
		}
	}
	return rec
}

func newReport(stackName string, rec state.Record, res stack.Result, tr state.Transition) notify.Report {
	report := notify.Report{
		Stack:          stackName,
		StackID:        rec.StackID,
		Operation:      rec.Operation,
		Outcome:        rec.Outcome,
		Status:         rec.Status,
		PreviousStatus: tr.PreviousStatus,
		ChangeSetID:    rec.ChangeSetID,
		Error:          rec.Error,
		GeneratedAt:    rec.CompletedAt,
	}
	if res.ChangeSet != nil {
		report.Changes = res.ChangeSet.Changes
	}
	return report
}
