// Package readiness reduces raw stack statuses to the operational states the
// orchestrator gates on.
package readiness

import (
	"context"
	"strings"

	"github.com/nholik/stackpilot/internal/cfn"
)

// State is the coarse operational state of a stack.
type State int

const (
	// Unknown is the zero value and is never returned by Classify.
	Unknown State = iota
	NotFound
	Exists
	Ready
	Busy
	Deleting
	DeleteFailed
	Broken
)

var names = map[State]string{
	Unknown:      "Unknown",
	NotFound:     "NotFound",
	Exists:       "Exists",
	Ready:        "Ready",
	Busy:         "Busy",
	Deleting:     "Deleting",
	DeleteFailed: "DeleteFailed",
	Broken:       "Broken",
}

var messages = map[State]string{
	NotFound:     "Stack does not exist.",
	Exists:       "A stack with this name already exists.",
	Ready:        "Stack is ready.",
	Busy:         "Stack is being modified by another process.",
	Deleting:     "Stack is being deleted by another process.",
	DeleteFailed: "Stack is in DELETE_FAILED state. Try deleting with retained resources.",
	Broken:       "Stack is broken. Check the stack in the AWS console and fix it.",
}

func (s State) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return "Unknown"
}

// Message returns a human readable explanation of the state.
func (s State) Message() string {
	if msg, ok := messages[s]; ok {
		return msg
	}
	return "Stack state is unknown."
}

// FromStatus maps a raw stack status to a State. The checks are ordered:
// DELETE_COMPLETE must win over the generic COMPLETE suffix and
// DELETE_FAILED over the generic FAILED suffix.
func FromStatus(status string) State {
	switch {
	case status == cfn.StatusDeleteComplete:
		return NotFound
	case status == cfn.StatusDeleteInProgress:
		return Deleting
	case strings.HasSuffix(status, "COMPLETE"):
		return Ready
	case status == cfn.StatusDeleteFailed:
		return DeleteFailed
	case strings.HasSuffix(status, "FAILED"):
		return Broken
	default:
		return Busy
	}
}

// Check describes the stack and classifies it. The snapshot is nil when the
// stack does not exist.
func Check(ctx context.Context, client cfn.Client, stackName string) (State, *cfn.Stack, error) {
	stack, err := client.DescribeStack(ctx, stackName)
	if err != nil {
		if cfn.IsStackNotFound(err) {
			return NotFound, nil, nil
		}
		return Unknown, nil, err
	}
	state := FromStatus(stack.Status)
	if state == NotFound {
		return NotFound, nil, nil
	}
	return state, stack, nil
}

// Classify returns the operational state of the named stack.
func Classify(ctx context.Context, client cfn.Client, stackName string) (State, error) {
	state, _, err := Check(ctx, client, stackName)
	return state, err
}
