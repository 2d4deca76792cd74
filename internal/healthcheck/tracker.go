package healthcheck

import (
	"sync"
	"time"
)

// PollSource reports when the control plane was last polled.
type PollSource interface {
	LastPoll() time.Time
}

// Snapshot describes the operation in flight.
type Snapshot struct {
	Stack        string     `json:"stack,omitempty"`
	Operation    string     `json:"operation,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	LastPollTime *time.Time `json:"last_poll_time"`
}

// Tracker derives liveness from poll heartbeats and readiness from the
// operation having started.
type Tracker struct {
	mu        sync.RWMutex
	polls     PollSource
	stack     string
	operation string
	startedAt time.Time
	ready     bool
}

// NewTracker constructs a new Tracker reading heartbeats from polls.
func NewTracker(polls PollSource) *Tracker {
	return &Tracker{polls: polls}
}

// RecordStart marks the operation as running.
func (t *Tracker) RecordStart(stack, operation string, at time.Time) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.stack = stack
	t.operation = operation
	t.startedAt = at.UTC()
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := Snapshot{Stack: t.stack, Operation: t.operation}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		snapshot.StartedAt = &started
	}
	if last := t.lastPoll(); !last.IsZero() {
		last = last.UTC()
		snapshot.LastPollTime = &last
	}
	return snapshot
}

// Ready reports whether an operation has started.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the control plane was polled within 2x the poll
// interval. Before the first poll the operation start counts as the heartbeat.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	last := t.lastPoll()
	if last.IsZero() {
		last = t.startedAt
	}
	if last.IsZero() {
		return false
	}
	return now.Sub(last) <= 2*pollInterval
}

func (t *Tracker) lastPoll() time.Time {
	if t.polls == nil {
		return time.Time{}
	}
	return t.polls.LastPoll()
}
