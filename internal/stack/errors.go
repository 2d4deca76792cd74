package stack

import (
	"fmt"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/readiness"
)

// NotFoundError is returned when an operation requires an existing stack.
type NotFoundError struct {
	StackName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("stack %q does not exist", e.StackName)
}

// StateConflictError is returned when the stack's state does not permit the
// requested operation.
type StateConflictError struct {
	StackName string
	State     readiness.State
	// Stack is the snapshot that was classified, when one exists.
	Stack *cfn.Stack
}

func (e *StateConflictError) Error() string {
	if e.Stack != nil && e.Stack.Status != "" {
		return fmt.Sprintf("stack %q is %s (%s): %s", e.StackName, e.State, e.Stack.Status, e.State.Message())
	}
	return fmt.Sprintf("stack %q is %s: %s", e.StackName, e.State, e.State.Message())
}

// OperationFailedError is returned when a followed operation finished in a
// failed or rolled back status.
type OperationFailedError struct {
	Stack *cfn.Stack
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("Stack '%s': Operation failed. Status is %s", e.Stack.Name, e.Stack.Status)
}
