package state

import (
	"context"
	"time"
)

// Record captures the last operation run against a stack.
type Record struct {
	StackID     string    `json:"stack_id"`
	Operation   string    `json:"operation"`
	Outcome     string    `json:"outcome"`
	ChangeSetID string    `json:"changeset_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Failed reports whether the operation ended with an error.
func (r Record) Failed() bool {
	return r.Error != ""
}

// State stores the last record for every stack, keyed by stack name.
type State struct {
	Stacks map[string]Record `json:"stacks"`
}

// Store defines the interface for persisting state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
