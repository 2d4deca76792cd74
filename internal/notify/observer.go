package notify

import (
	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/rs/zerolog"
)

// Observer receives progress output while an operation runs.
type Observer interface {
	Info(msg string)
	Warn(msg string)
	ChangeSet(title string, cs *cfn.ChangeSet)
	StackEvent(event cfn.StackEvent)
}

// ColumnSizer is implemented by observers that align output in columns.
type ColumnSizer interface {
	SetColumnWidths(stackWidth, resourceWidth int)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Info(string)                      {}
func (NopObserver) Warn(string)                      {}
func (NopObserver) ChangeSet(string, *cfn.ChangeSet) {}
func (NopObserver) StackEvent(cfn.StackEvent)        {}

// LogObserver writes progress as structured log entries.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver returns an observer backed by logger.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Info(msg string) {
	o.logger.Info().Msg(msg)
}

func (o *LogObserver) Warn(msg string) {
	o.logger.Warn().Msg(msg)
}

func (o *LogObserver) ChangeSet(title string, cs *cfn.ChangeSet) {
	if cs == nil {
		return
	}
	o.logger.Info().
		Str("changeset", cs.Name).
		Str("stack", cs.StackName).
		Int("changes", len(cs.Changes)).
		Msg(title)
	for _, change := range cs.Changes {
		event := o.logger.Info().
			Str("action", change.Action).
			Str("logical_id", change.LogicalID).
			Str("resource_type", change.ResourceType)
		if change.PhysicalID != "" {
			event = event.Str("physical_id", change.PhysicalID)
		}
		if change.Replacement != "" {
			event = event.Str("replacement", change.Replacement)
		}
		event.Msg("change")
	}
}

func (o *LogObserver) StackEvent(e cfn.StackEvent) {
	event := o.logger.Info()
	if isFailureStatus(e.Status) {
		event = o.logger.Error()
	}
	event = event.
		Time("timestamp", e.Timestamp).
		Str("stack", e.StackName).
		Str("logical_id", e.LogicalID).
		Str("resource_type", e.ResourceType).
		Str("status", e.Status)
	if e.StatusReason != "" {
		event = event.Str("reason", e.StatusReason)
	}
	event.Msg("stack event")
}

// MultiObserver fans progress out to several observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver drops nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) Info(msg string) {
	for _, o := range m.observers {
		o.Info(msg)
	}
}

func (m *MultiObserver) Warn(msg string) {
	for _, o := range m.observers {
		o.Warn(msg)
	}
}

func (m *MultiObserver) ChangeSet(title string, cs *cfn.ChangeSet) {
	for _, o := range m.observers {
		o.ChangeSet(title, cs)
	}
}

func (m *MultiObserver) StackEvent(e cfn.StackEvent) {
	for _, o := range m.observers {
		o.StackEvent(e)
	}
}

// SetColumnWidths forwards to members that align output.
func (m *MultiObserver) SetColumnWidths(stackWidth, resourceWidth int) {
	for _, o := range m.observers {
		if sizer, ok := o.(ColumnSizer); ok {
			sizer.SetColumnWidths(stackWidth, resourceWidth)
		}
	}
}
