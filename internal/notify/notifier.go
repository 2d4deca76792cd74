// Package notify reports operation progress to observers and sends
// operation results to external systems.
package notify

import (
	"context"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
)

// Report is the outcome of one lifecycle operation.
type Report struct {
	Stack          string       `json:"stack"`
	StackID        string       `json:"stack_id,omitempty"`
	Operation      string       `json:"operation"`
	Outcome        string       `json:"outcome,omitempty"`
	Status         string       `json:"status,omitempty"`
	PreviousStatus string       `json:"previous_status,omitempty"`
	ChangeSetID    string       `json:"changeset_id,omitempty"`
	Changes        []cfn.Change `json:"changes,omitempty"`
	Error          string       `json:"error,omitempty"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// Failed reports whether the operation ended in an error.
func (r Report) Failed() bool {
	return r.Error != ""
}

// Notifier delivers operation reports to external systems.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}
