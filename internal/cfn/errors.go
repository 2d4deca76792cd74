package cfn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrStackNotFound is reported when the control plane says the stack does not exist.
var ErrStackNotFound = errors.New("stack does not exist")

// TransportError wraps a failed control-plane call. It is never retried here.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsStackNotFound reports whether err means the stack is absent.
func IsStackNotFound(err error) bool {
	return errors.Is(err, ErrStackNotFound)
}

// wrapCall converts an SDK error to ErrStackNotFound or a TransportError.
func wrapCall(op, stack string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundAPIError(err) {
		return fmt.Errorf("%s %q: %w", op, stack, ErrStackNotFound)
	}
	return &TransportError{Op: op, Err: err}
}

func isNotFoundAPIError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.ErrorCode() != "ValidationError" {
		return false
	}
	msg := apiErr.ErrorMessage()
	return strings.HasPrefix(msg, "Stack with id") && strings.HasSuffix(msg, "does not exist")
}
